package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/catalog"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/textnorm"
)

// ServiceCounts maps a service to its requested multiplicity. Zero means not
// requested. Values are clamped to the per-service maximum before the map is
// returned.
type ServiceCounts map[catalog.ServiceID]int

// Any reports whether at least one service was requested.
func (c ServiceCounts) Any() bool {
	for _, n := range c {
		if n > 0 {
			return true
		}
	}
	return false
}

// Estonian detectors.
var (
	etDMA           = regexp.MustCompile(`(?i)Digik[uü]psuse hindamine`)
	etAI            = regexp.MustCompile(`(?i)Tehisintellekti otstarbekuse nõustamine`)
	etAICount       = regexp.MustCompile(`Projektipõhine AI nõustamine:\s*(\d+)\s*kordne`)
	etAccelerator   = regexp.MustCompile(`(?i)AIRE (eel)?kiirendi`)
	etFunding       = regexp.MustCompile(`(?i)Finantseerimise nõustamine`)
	etFundingCount  = regexp.MustCompile(`Finantseerimise nõustamine:\s*(\d+)\s*kordne`)
	etPrivate       = regexp.MustCompile(`(?i)Erakapitali kaasamine`)
	etPublic        = regexp.MustCompile(`(?i)Avalikud meetmed`)
	etRobotics      = regexp.MustCompile(`(?i)Robotiseerimise (otstarbekuse )?nõustamine`)
	etRoboticsCount = regexp.MustCompile(`(?i)Robotiseerimise nõustamine:\s*(\d+)\s*kordne`)
)

// English detectors. The word "two" is the only non-digit count token
// accepted.
var (
	enDMA           = regexp.MustCompile(`(?i)Digital maturity assessment`)
	enAI            = regexp.MustCompile(`(?i)AI suitability assessment`)
	enAICount       = regexp.MustCompile(`(?i)(?:Project-based AI consultancy|AI suitability assessment):\s*(two|\d+)(?:\s*service units)?`)
	enAccelerator   = regexp.MustCompile(`(?i)AIRE (pre-)?accelerator`)
	enRobotics      = regexp.MustCompile(`(?i)Robotics consultancy`)
	enRoboticsCount = regexp.MustCompile(`(?i)Robotics consultancy:?\s*(two|\d+)\s*service units`)
	enPrivate       = regexp.MustCompile(`(?i)Finding Sources of funding\s*-\s*Private capital`)
	enPrivateCount  = regexp.MustCompile(`(?i)Finding Sources of funding\s*-\s*Private capital.*?(two|\d+)\s*service units`)
	enPublic        = regexp.MustCompile(`(?i)Finding Sources of funding\s*-\s*Public measures`)
	enPublicCount   = regexp.MustCompile(`(?i)Finding Sources of funding\s*-\s*Public measures.*?(two|\d+)\s*service units`)
)

// Services determines which catalog services the body requests and at what
// multiplicity. The body is collapsed and dash-normalized first. An
// unsupported language yields all-zero counts; that is a non-match, not an
// error.
func Services(body, language string, cat *catalog.Catalog) ServiceCounts {
	body = textnorm.Selection(body)

	counts := ServiceCounts{}
	for _, s := range cat.Services() {
		counts[s.ID] = 0
	}

	switch language {
	case LangEstonian:
		selectEstonian(body, counts)
	case LangEnglish:
		selectEnglish(body, counts)
	}

	for _, s := range cat.Services() {
		if counts[s.ID] > s.MaxUnits() {
			counts[s.ID] = s.MaxUnits()
		}
	}
	return counts
}

func selectEstonian(body string, counts ServiceCounts) {
	if etDMA.MatchString(body) {
		counts[catalog.DigitalMaturity] = 1
	}

	if etAI.MatchString(body) {
		counts[catalog.AIConsultancy] = markerCount(etAICount, body, 1)
	}

	if etAccelerator.MatchString(body) {
		counts[catalog.PreAccelerator] = 1
	}

	// Funding advisory is compound: one count marker, fan-out to the two
	// sub-services on their secondary keywords.
	if etFunding.MatchString(body) {
		n := markerCount(etFundingCount, body, 1)
		if etPrivate.MatchString(body) {
			counts[catalog.PrivateFunding] = n
		}
		if etPublic.MatchString(body) {
			counts[catalog.PublicMeasures] = n
		}
	}

	if m := etRoboticsCount.FindStringSubmatch(body); m != nil {
		counts[catalog.Robotics] = atoiCount(m[1])
	} else if etRobotics.MatchString(body) {
		counts[catalog.Robotics] = 1
	}
}

func selectEnglish(body string, counts ServiceCounts) {
	if enDMA.MatchString(body) {
		counts[catalog.DigitalMaturity] = 1
	}

	if enAI.MatchString(body) {
		counts[catalog.AIConsultancy] = markerCount(enAICount, body, 1)
	}

	if enAccelerator.MatchString(body) {
		counts[catalog.PreAccelerator] = 1
	}

	if m := enRoboticsCount.FindStringSubmatch(body); m != nil {
		counts[catalog.Robotics] = atoiCount(m[1])
	} else if enRobotics.MatchString(body) {
		counts[catalog.Robotics] = 1
	}

	if enPrivate.MatchString(body) {
		counts[catalog.PrivateFunding] = markerCount(enPrivateCount, body, 1)
	}
	if enPublic.MatchString(body) {
		counts[catalog.PublicMeasures] = markerCount(enPublicCount, body, 1)
	}
}

func markerCount(re *regexp.Regexp, body string, fallback int) int {
	m := re.FindStringSubmatch(body)
	if m == nil {
		return fallback
	}
	return atoiCount(m[1])
}

func atoiCount(tok string) int {
	if strings.EqualFold(tok, "two") {
		return 2
	}
	n, err := strconv.Atoi(tok)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
