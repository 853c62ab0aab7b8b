package registry

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// VTA (de minimis aid) check result sentinels. The check is informational;
// failures degrade to a message, they never abort reconciliation.
const (
	VTANotApplicable = "VTA kontroll ei kohaldu"
	vtaNotFound      = "VTA informatsiooni ei leitud"
	vtaFetchError    = "Viga VTA andmete hankimisel"
)

// vtaThreshold is the remnant below which the result is flagged as low.
const vtaThreshold = 5000

var nonNumeric = regexp.MustCompile(`[^\d.]`)

// VTARemnant checks the company's free de minimis remnant and formats the
// compliance text stored on created records: "ok(date - remnant)" when the
// remnant clears the threshold, "vähe(date - remnant)" otherwise. The page
// repeats the remnant block; the second occurrence is the authoritative one.
func (c *Client) VTARemnant(ctx context.Context, code string) string {
	url := strings.ReplaceAll(c.vtaURL, "{regCode}", code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return vtaFetchError
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		c.logger.Warn("vta fetch failed", zap.String("registry_code", code), zap.Error(err))
		return vtaFetchError
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("vta fetch returned non-200",
			zap.String("registry_code", code), zap.Int("status", resp.StatusCode))
		return vtaFetchError
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return vtaFetchError
	}
	return parseVTA(doc, time.Now())
}

func parseVTA(doc *goquery.Document, now time.Time) string {
	currentDate := now.Format("02.01.2006")
	result := vtaNotFound
	remnantCount := 0

	doc.Find("div.title").EachWithBreak(func(_ int, block *goquery.Selection) bool {
		h3 := block.Find("h3")
		if h3.Length() == 0 || !strings.Contains(h3.Text(), "VTA vaba jääk") {
			return true
		}
		remnant := strings.TrimSpace(block.Find("div.title-addon").Text())
		if remnant == "" {
			return true
		}
		remnantCount++
		if remnantCount < 2 {
			return true
		}
		value, err := strconv.ParseFloat(nonNumeric.ReplaceAllString(remnant, ""), 64)
		if err != nil {
			return true
		}
		if value > vtaThreshold {
			result = "ok(" + currentDate + " - " + remnant + ")"
		} else {
			result = "vähe(" + currentDate + " - " + remnant + ")"
		}
		return false
	})
	return result
}
