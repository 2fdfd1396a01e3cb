package adapters

import (
	"net/url"
	"regexp"
	"strings"

	"price-watcher/internal/types"

	"github.com/PuerkitoBio/goquery"
)

var imageExtension = regexp.MustCompile(`(?i)\.(jpe?g|png|webp)`)

// FindImageURL locates a representative product image: the og:image meta
// tag, then link rel="image_src", then the first plausible <img>. It returns
// "" when none is found.
func FindImageURL(page *types.PageState) string {
	if page == nil || page.HTML == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return ""
	}
	base, _ := url.Parse(page.URL)

	attr := func(selector, name string) func() (string, bool) {
		return func() (string, bool) {
			value, ok := doc.Find(selector).First().Attr(name)
			if !ok {
				return "", false
			}
			return absoluteHTTP(base, value)
		}
	}

	firstImage := func() (string, bool) {
		var found string
		doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			for _, name := range []string{"src", "data-src"} {
				value, ok := s.Attr(name)
				if !ok || !imageExtension.MatchString(value) {
					continue
				}
				if abs, ok := absoluteHTTP(base, value); ok {
					found = abs
					return false
				}
			}
			return true
		})
		return found, found != ""
	}

	image, _ := FirstMatch(
		attr(`meta[property="og:image"]`, "content"),
		attr(`link[rel="image_src"]`, "href"),
		firstImage,
	)
	return image
}

// absoluteHTTP resolves ref against base and accepts only http(s) results.
func absoluteHTTP(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return "", false
	}
	if strings.HasPrefix(ref, "//") {
		ref = "https:" + ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if !u.IsAbs() {
		if base == nil || !base.IsAbs() {
			return "", false
		}
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return u.String(), true
}
