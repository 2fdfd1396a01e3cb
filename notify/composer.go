// Package notify builds Discord-style webhook payloads from run outcomes and
// delivers them.
package notify

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"price-watcher/internal/price"
	"price-watcher/internal/state"
	"price-watcher/internal/types"
)

// Limits of a single webhook message
const (
	MaxEmbeds            = 10
	maxDetailEmbeds      = MaxEmbeds - 1
	maxErrorEntries      = 5
	maxOverflowEntries   = 50
	maxDescriptionLength = 4096
	maxContentLength     = 2000
	maxTitleLength       = 256
)

// Embed colors
const (
	ColorDecrease = 0x2ECC71
	ColorIncrease = 0xE74C3C
	ColorMixed    = 0xF1C40F
	ColorNeutral  = 0x3498DB
	ColorError    = 0x95A5A6
)

// Payload is the JSON body posted to the webhook
type Payload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Embed is one rich block of a message
type Embed struct {
	Title       string     `json:"title,omitempty"`
	URL         string     `json:"url,omitempty"`
	Color       int        `json:"color"`
	Timestamp   string     `json:"timestamp,omitempty"`
	Description string     `json:"description,omitempty"`
	Thumbnail   *Thumbnail `json:"thumbnail,omitempty"`
}

// Thumbnail is the small image shown next to an embed
type Thumbnail struct {
	URL string `json:"url"`
}

// ChangeAlert groups all price changes of a run into one message. It returns
// nil when there is nothing to report.
func ChangeAlert(changes []types.ChangeEvent, now time.Time) *Payload {
	if len(changes) == 0 {
		return nil
	}

	var up, down int
	lines := make([]string, 0, len(changes))
	for _, c := range changes {
		delta := c.Delta()
		if delta < 0 {
			down++
		} else {
			up++
		}
		lines = append(lines, fmt.Sprintf("%s **%s**: %s → %s (%s)\n%s",
			arrow(delta), c.Name, price.Format(c.FromMinorUnits), price.Format(c.ToMinorUnits), price.FormatDelta(delta), c.URL))
	}

	color := ColorMixed
	switch {
	case up == 0:
		color = ColorDecrease
	case down == 0:
		color = ColorIncrease
	}

	names := make([]string, 0, len(changes))
	for _, c := range changes {
		names = append(names, c.Name)
	}

	return &Payload{
		Content: truncate("💸 "+strings.Join(names, ", "), maxContentLength),
		Embeds: []Embed{{
			Title:       fmt.Sprintf("💸 Price changes (%d)", len(changes)),
			Color:       color,
			Timestamp:   timestamp(now),
			Description: truncate(strings.Join(lines, "\n\n"), maxDescriptionLength),
		}},
	}
}

// summaryCounts tallies a run for the report header
type summaryCounts struct {
	ok, errors, increases, decreases, unchanged, firstSeen int
}

// movement is the price difference of a successful result, or 0 when it is
// below threshold.
func movement(r types.RunResult, threshold int64) int64 {
	if !state.Changed(r.PrevMinorUnits, r.Observation.AmountMinorUnits, threshold) {
		return 0
	}
	return r.Observation.AmountMinorUnits - *r.PrevMinorUnits
}

func countResults(results []types.RunResult, threshold int64) summaryCounts {
	var c summaryCounts
	for _, r := range results {
		if !r.OK || r.Observation == nil {
			c.errors++
			continue
		}
		c.ok++
		if r.PrevMinorUnits == nil {
			c.firstSeen++
			continue
		}
		switch delta := movement(r, threshold); {
		case delta < 0:
			c.decreases++
		case delta > 0:
			c.increases++
		default:
			c.unchanged++
		}
	}
	return c
}

// RunSummary reports every item of a run: a header with counts, one block
// per successful item up to the message limit and a compact list for the
// rest. Errors are listed in the header. Differences smaller than threshold
// minor units count as unchanged, matching the change alert.
func RunSummary(results []types.RunResult, threshold int64, now time.Time) *Payload {
	counts := countResults(results, threshold)
	ts := timestamp(now)

	var header strings.Builder
	fmt.Fprintf(&header, "✅ OK: %d\n⚠️ Errors: %d\n⬇️ Decreases: %d\n⬆️ Increases: %d\n➖ Unchanged: %d\n🆕 First seen: %d",
		counts.ok, counts.errors, counts.decreases, counts.increases, counts.unchanged, counts.firstSeen)

	var details []Embed
	var overflow []string
	var failures []string
	for _, r := range results {
		if !r.OK || r.Observation == nil {
			failures = append(failures, fmt.Sprintf("⚠️ **%s**: %s", r.Item.Name, r.Error))
			continue
		}
		if len(details) < maxDetailEmbeds {
			details = append(details, detailEmbed(r, threshold, ts))
			continue
		}
		overflow = append(overflow, fmt.Sprintf("• %s: %s %s", r.Item.Name, price.Format(r.Observation.AmountMinorUnits), changeMark(r, threshold)))
	}

	if len(failures) > 0 {
		shown := failures
		if len(shown) > maxErrorEntries {
			shown = shown[:maxErrorEntries]
		}
		fmt.Fprintf(&header, "\n\n**Errors**\n%s", strings.Join(shown, "\n"))
		if rest := len(failures) - len(shown); rest > 0 {
			fmt.Fprintf(&header, "\n…and %d more", rest)
		}
	}
	if len(overflow) > 0 {
		shown := overflow
		if len(shown) > maxOverflowEntries {
			shown = shown[:maxOverflowEntries]
		}
		fmt.Fprintf(&header, "\n\n**More items (%d)**\n%s", len(overflow), strings.Join(shown, "\n"))
		if rest := len(overflow) - len(shown); rest > 0 {
			fmt.Fprintf(&header, "\n…and %d more", rest)
		}
	}

	color := ColorNeutral
	if counts.errors > 0 {
		color = ColorError
	}

	embeds := make([]Embed, 0, 1+len(details))
	embeds = append(embeds, Embed{
		Title:       fmt.Sprintf("📦 Price report (%d items)", len(results)),
		Color:       color,
		Timestamp:   ts,
		Description: truncate(header.String(), maxDescriptionLength),
	})
	embeds = append(embeds, details...)
	return &Payload{Embeds: embeds}
}

func detailEmbed(r types.RunResult, threshold int64, ts string) Embed {
	obs := r.Observation
	lines := []string{"**" + price.Format(obs.AmountMinorUnits) + "**", changeMark(r, threshold)}
	if host := sourceDomain(r.Item.URL); host != "" {
		lines = append(lines, host)
	}

	embed := Embed{
		Title:       truncate(r.Item.Name, maxTitleLength),
		URL:         r.Item.URL,
		Color:       changeColor(r, threshold),
		Timestamp:   ts,
		Description: strings.Join(lines, "\n"),
	}
	if obs.ImageURL != "" {
		embed.Thumbnail = &Thumbnail{URL: obs.ImageURL}
	}
	return embed
}

func changeMark(r types.RunResult, threshold int64) string {
	if r.PrevMinorUnits == nil {
		return "🆕 first check"
	}
	delta := movement(r, threshold)
	if delta == 0 {
		return "➖ no change"
	}
	return fmt.Sprintf("%s %s (was %s)", arrow(delta), price.FormatDelta(delta), price.Format(*r.PrevMinorUnits))
}

func changeColor(r types.RunResult, threshold int64) int {
	if r.PrevMinorUnits == nil {
		return ColorNeutral
	}
	switch delta := movement(r, threshold); {
	case delta < 0:
		return ColorDecrease
	case delta > 0:
		return ColorIncrease
	default:
		return ColorNeutral
	}
}

func arrow(delta int64) string {
	if delta < 0 {
		return "⬇️"
	}
	return "⬆️"
}

func sourceDomain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func timestamp(now time.Time) string {
	return now.UTC().Format(time.RFC3339)
}

// truncate shortens s to at most limit runes, marking the cut with "…"
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
