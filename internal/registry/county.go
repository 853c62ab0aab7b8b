package registry

import (
	"sort"
	"strings"

	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/textnorm"
)

// CountyNotFound is the explicit sentinel for an address that matches no
// known county. It is never silently replaced with an empty string.
const CountyNotFound = "Asukohta ei leitud"

// counties maps the official county spellings found in registry addresses to
// the short display names used in the record store.
var counties = map[string]string{
	"Harju maakond":      "Harjumaa",
	"Haju maakond":       "Hajumaa",
	"Tartu maakond":      "Tartumaa",
	"Lääne-Viru maakond": "Lääne-Virumaa",
	"Võru maakond":       "Võrumaa",
	"Järva maakond":      "Järvamaa",
	"Viljandi maakond":   "Viljandimaa",
	"Saare maakond":      "Saaremaa",
	"Hiiu maakond":       "Hiiumaa",
	"Pärnu maakond":      "Pärnumaa",
	"Rapla maakond":      "Raplamaa",
	"Ida-Viru maakond":   "Ida-Virumaa",
	"Jõgeva maakond":     "Jõgevamaa",
	"Põlva maakond":      "Põlvamaa",
	"Valga maakond":      "Valgamaa",
	"Lääne maakond":      "Läänemaa",
}

// countyKeys holds the map keys longest-first so that the most specific
// spelling wins the substring match.
var countyKeys = func() []string {
	keys := make([]string, 0, len(counties))
	for k := range counties {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// MatchCounty resolves an address to a county display name, case-insensitive
// and tolerant of separator noise.
func MatchCounty(address string) string {
	haystack := strings.ToLower(textnorm.Dashes(textnorm.CollapseLines(address)))
	for _, key := range countyKeys {
		if strings.Contains(haystack, strings.ToLower(key)) {
			return counties[key]
		}
	}
	return CountyNotFound
}
