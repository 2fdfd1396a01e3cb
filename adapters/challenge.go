package adapters

import (
	"strings"

	"price-watcher/internal/types"

	"github.com/PuerkitoBio/goquery"
)

// ChallengeDetector recognizes anti-bot interstitials. Any single signal is
// conclusive; missing a challenge only means extraction fails later.
type ChallengeDetector struct {
	urlFragments    []string
	widgetSelectors []string
	titlePhrases    []string
	markupMarkers   []string
}

// NewChallengeDetector creates a detector with the known challenge signals
func NewChallengeDetector() *ChallengeDetector {
	return &ChallengeDetector{
		urlFragments: []string{
			"/captcha",
			"challenges.cloudflare.com",
			"/cdn-cgi/challenge-platform/",
			"captcha-delivery.com",
		},
		widgetSelectors: []string{
			"div.cf-turnstile",
			`iframe[src*="challenges.cloudflare.com"]`,
			"#challenge-form",
			"#challenge-stage",
			"#cf-challenge-running",
			`iframe[src*="captcha-delivery.com"]`,
			"#px-captcha",
		},
		titlePhrases: []string{
			"just a moment",
			"security verification",
			"attention required",
			"verifying you are human",
			"chwileczkę",
		},
		// Cloudflare injects its /cdn-cgi/challenge-platform/ detection
		// script into ordinary pages too, so only challenge-only markers
		// are listed here.
		markupMarkers: []string{
			"_cf_chl_opt",
			"cf-chl-widget",
			"geo.captcha-delivery.com",
		},
	}
}

// IsChallenge reports whether page is a challenge
func (d *ChallengeDetector) IsChallenge(page *types.PageState) bool {
	ok, _ := d.Detect(page)
	return ok
}

// Detect reports whether page is a challenge and which signal fired
func (d *ChallengeDetector) Detect(page *types.PageState) (bool, string) {
	if page == nil {
		return false, ""
	}

	pageURL := strings.ToLower(page.URL)
	for _, fragment := range d.urlFragments {
		if strings.Contains(pageURL, fragment) {
			return true, "url:" + fragment
		}
	}

	title := strings.ToLower(page.Title)
	for _, phrase := range d.titlePhrases {
		if strings.Contains(title, phrase) {
			return true, "title:" + phrase
		}
	}

	if page.HTML == "" {
		return false, ""
	}

	for _, marker := range d.markupMarkers {
		if strings.Contains(page.HTML, marker) {
			return true, "markup:" + marker
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return false, ""
	}
	for _, selector := range d.widgetSelectors {
		if doc.Find(selector).Length() > 0 {
			return true, "widget:" + selector
		}
	}

	return false, ""
}
