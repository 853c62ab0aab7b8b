package registry

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Enrichment carries the registry-derived fields attached to a company record
// at creation. The fields are set once and never refreshed on later
// sightings.
type Enrichment struct {
	Address         string
	County          string
	PrimaryActivity string
	ActivityCode    string
	EmployeeCount   string
}

// Empty reports whether the scrape yielded no usable fields at all. For a
// domestic company that is treated as a validation failure, not as a license
// to create an empty record.
func (e Enrichment) Empty() bool {
	return e.Address == "" && e.PrimaryActivity == "" && e.ActivityCode == "" && e.EmployeeCount == ""
}

const scrapeTimeout = 30 * time.Second

// addressSelector is the label column of the registry's detail rows; the
// values live in each label's next sibling.
const addressSelector = `div.col-md-4.text-muted`

var activityCodeRe = regexp.MustCompile(`\b(\d{4,5})\b`)

// Enrich loads the company page in a headless browser and pulls the labeled
// detail fields. The DOM wait is bounded by scrapeTimeout; everything else
// inherits ctx.
func (c *Client) Enrich(ctx context.Context, code string) (Enrichment, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, scrapeTimeout)
	defer cancel()

	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.NoSandbox,
			chromedp.DisableGPU,
			chromedp.Flag("disable-dev-shm-usage", true),
		)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var address, activity, employees string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(c.companyURL(code)),
		chromedp.WaitVisible(addressSelector, chromedp.ByQuery),
		chromedp.Evaluate(labeledValueJS("Aadress"), &address),
		chromedp.Evaluate(labeledValueJS("Põhitegevusala"), &activity),
		chromedp.Evaluate(labeledValueJS("Töötajate arv"), &employees),
	)
	if err != nil {
		return Enrichment{}, fmt.Errorf("registry scrape for %s: %w", code, err)
	}

	enr := Enrichment{
		Address:         cleanAddress(address),
		PrimaryActivity: strings.TrimSpace(activity),
		EmployeeCount:   strings.TrimSpace(employees),
	}
	enr.County = MatchCounty(enr.Address)
	if m := activityCodeRe.FindString(enr.PrimaryActivity); m != "" {
		enr.ActivityCode = m
	}

	c.logger.Info("registry enrichment scraped",
		zap.String("registry_code", code),
		zap.String("county", enr.County),
		zap.String("activity_code", enr.ActivityCode))
	return enr, nil
}

// labeledValueJS finds the detail row whose muted label starts with want and
// returns the text of the adjacent value column.
func labeledValueJS(want string) string {
	return fmt.Sprintf(`(() => {
	const labels = Array.from(document.querySelectorAll(%q));
	for (const el of labels) {
		if (el.innerText.trim().startsWith(%q) && el.nextElementSibling) {
			return el.nextElementSibling.innerText;
		}
	}
	return "";
})()`, addressSelector, want)
}

// cleanAddress drops the map-widget tail the registry appends to addresses.
func cleanAddress(addr string) string {
	addr, _, _ = strings.Cut(addr, " Ava kaart")
	return strings.TrimSpace(addr)
}
