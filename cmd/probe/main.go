package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/joho/godotenv"

	"price-watcher/adapters"
	"price-watcher/internal/app"
	"price-watcher/internal/config"
	"price-watcher/internal/price"
	"price-watcher/internal/types"
	"price-watcher/utils"
)

// probeResult is what a single probe found on the page
type probeResult struct {
	URL        string                  `json:"url"`
	FinalURL   string                  `json:"finalUrl"`
	Title      string                  `json:"title"`
	Challenge  bool                    `json:"challenge"`
	Reason     string                  `json:"reason,omitempty"`
	Price      *types.PriceObservation `json:"price,omitempty"`
	Formatted  string                  `json:"formatted,omitempty"`
	ImageURL   string                  `json:"imageUrl,omitempty"`
	Candidates []string                `json:"candidates,omitempty"`
}

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	var (
		url      = flag.String("url", "", "Product page to probe")
		strategy = flag.String("strategy", "", "Extraction strategy ("+strings.Join(adapters.Strategies(), ", ")+")")
		selector = flag.String("selector", "", "Comma-separated fallback selectors")
		anchor   = flag.String("anchor", "", "Landmark text the price follows")
		headful  = flag.Bool("headful", false, "Open a visible browser")
		save     = flag.Bool("save", false, "Write debug artifacts for the page")
		verbose  = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if *url == "" {
		fmt.Fprintln(os.Stderr, "-url is required")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.LogLevel, *verbose)

	item := types.Item{Name: "probe", URL: *url, Strategy: types.Strategy(*strategy), Selector: *selector, AnchorText: *anchor}
	adapter, err := adapters.New(item.Strategy, cfg, logger)
	if err != nil {
		logger.Fatalf("Invalid strategy: %v", err)
	}

	materials, err := utils.NewMaterialStore(cfg.StoragePath).Load()
	if err != nil {
		logger.Fatalf("Failed to read session material: %v", err)
	}

	ctx := context.Background()
	browser := utils.NewBrowserClient(cfg, logger)
	session, err := browser.Launch(ctx, !*headful, materials)
	if err != nil {
		logger.Fatalf("Failed to launch browser: %v", err)
	}
	defer session.Close()

	if err := session.Navigate(ctx, item.URL); err != nil {
		logger.Fatalf("Navigation failed: %v", err)
	}
	_ = session.Wait(ctx, cfg.SettleDelay)

	page, err := session.Snapshot(ctx)
	if err != nil {
		logger.Fatalf("Failed to read page: %v", err)
	}

	result := probeResult{URL: item.URL, FinalURL: page.URL, Title: page.Title}
	result.Challenge, result.Reason = adapters.NewChallengeDetector().Detect(page)
	if obs := adapter.ExtractPrice(page, item); obs != nil {
		result.Price = obs
		result.Formatted = price.Format(obs.AmountMinorUnits)
	}
	result.ImageURL = adapters.FindImageURL(page)
	result.Candidates = priceCandidates(page.HTML, 10)

	if *save {
		shot, err := session.Screenshot(ctx)
		if err != nil {
			logger.Warnf("Failed to capture screenshot: %v", err)
		}
		utils.NewDebugWriter(cfg.DebugDir, logger).Save(item.Name, page.HTML, shot)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

// priceCandidates lists the texts of elements whose class mentions a price,
// to help pick a selector for a new store.
func priceCandidates(html string, limit int) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var found []string
	doc.Find(`[class*="price"], [data-name*="Price"]`).EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" || len(text) > 80 {
			return true
		}
		if _, ok := price.Normalize(text); !ok {
			return true
		}
		class, _ := s.Attr("class")
		found = append(found, fmt.Sprintf("%s.%s: %s", goquery.NodeName(s), strings.ReplaceAll(strings.TrimSpace(class), " ", "."), text))
		return len(found) < limit
	})
	return found
}
