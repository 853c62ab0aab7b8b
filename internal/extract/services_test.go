package extract

import (
	"testing"

	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/catalog"
)

func testCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Service{
		{ID: catalog.DigitalMaturity, NameET: "Digiküpsuse hindamine", Kind: catalog.OneShot},
		{ID: catalog.AIConsultancy, NameET: "Tehisintellekti otstarbekuse nõustamine", ProjectLabel: "AI nõustamine", Kind: catalog.Advisory, DatabaseID: "db-ai"},
		{ID: catalog.PrivateFunding, NameET: "Finantseerimise nõustamine – Erakapitali kaasamine", ProjectLabel: "Erakapitali kaasamine", Kind: catalog.Advisory, DatabaseID: "db-private"},
		{ID: catalog.PublicMeasures, NameET: "Finantseerimise nõustamine – Avalikud meetmed", ProjectLabel: "Avalikud meetmed", Kind: catalog.Advisory, DatabaseID: "db-public"},
		{ID: catalog.Robotics, NameET: "Robotiseerimise nõustamine", ProjectLabel: "Robotiseerimise nõustamine", Kind: catalog.Advisory, DatabaseID: "db-robotics"},
		{ID: catalog.PreAccelerator, NameET: "AIRE eelkiirendi", ProjectLabel: "AIRE eelkiirendi", Kind: catalog.OneShot, DatabaseID: "db-accel"},
	})
}

func TestServicesEstonianPrivateFundingClamped(t *testing.T) {
	body := "Soovime teenust Finantseerimise nõustamine – Erakapitali kaasamine.\n" +
		"Finantseerimise nõustamine: 3 kordne"
	counts := Services(body, LangEstonian, testCatalog())

	if counts[catalog.PrivateFunding] != 2 {
		t.Fatalf("private funding = %d, want 2 (3 clamped)", counts[catalog.PrivateFunding])
	}
	for id, n := range counts {
		if id != catalog.PrivateFunding && n != 0 {
			t.Fatalf("unrelated service %s = %d, want 0", id, n)
		}
	}
}

func TestServicesEstonianFundingFanOut(t *testing.T) {
	body := "Finantseerimise nõustamine: 2 kordne. Teemad: Erakapitali kaasamine ja Avalikud meetmed."
	counts := Services(body, LangEstonian, testCatalog())
	if counts[catalog.PrivateFunding] != 2 || counts[catalog.PublicMeasures] != 2 {
		t.Fatalf("fan-out = %d/%d, want 2/2", counts[catalog.PrivateFunding], counts[catalog.PublicMeasures])
	}
}

func TestServicesEstonianPresenceImpliesOne(t *testing.T) {
	body := "Sooviksime tellida: Tehisintellekti otstarbekuse nõustamine ja Digiküpsuse hindamine."
	counts := Services(body, LangEstonian, testCatalog())
	if counts[catalog.AIConsultancy] != 1 {
		t.Fatalf("AI = %d, want 1", counts[catalog.AIConsultancy])
	}
	if counts[catalog.DigitalMaturity] != 1 {
		t.Fatalf("DMA = %d, want 1", counts[catalog.DigitalMaturity])
	}
}

func TestServicesEnglishTwoLiteral(t *testing.T) {
	body := "We would like the following.\nAI suitability assessment: two"
	counts := Services(body, LangEnglish, testCatalog())
	if counts[catalog.AIConsultancy] != 2 {
		t.Fatalf("AI = %d, want 2", counts[catalog.AIConsultancy])
	}
}

func TestServicesEnglishRoboticsCount(t *testing.T) {
	body := "Robotics consultancy 2 service units, please."
	counts := Services(body, LangEnglish, testCatalog())
	if counts[catalog.Robotics] != 2 {
		t.Fatalf("robotics = %d, want 2", counts[catalog.Robotics])
	}
}

func TestServicesEnglishFundingDashVariants(t *testing.T) {
	// Em dash in the source text must match after normalization.
	body := "Finding Sources of funding — Private capital: 5 service units"
	counts := Services(body, LangEnglish, testCatalog())
	if counts[catalog.PrivateFunding] != 2 {
		t.Fatalf("private funding = %d, want 2 (5 clamped)", counts[catalog.PrivateFunding])
	}
}

func TestServicesOneShotClamp(t *testing.T) {
	body := "AIRE eelkiirendi, AIRE eelkiirendi, Digiküpsuse hindamine"
	counts := Services(body, LangEstonian, testCatalog())
	if counts[catalog.PreAccelerator] != 1 {
		t.Fatalf("pre-accelerator = %d, want 1", counts[catalog.PreAccelerator])
	}
	if counts[catalog.DigitalMaturity] != 1 {
		t.Fatalf("DMA = %d, want 1", counts[catalog.DigitalMaturity])
	}
}

func TestServicesUnsupportedLanguage(t *testing.T) {
	body := "Digiküpsuse hindamine ja Robotics consultancy"
	counts := Services(body, "de", testCatalog())
	if counts.Any() {
		t.Fatalf("unsupported language must yield all-zero counts, got %v", counts)
	}
}

func TestServicesMultilineBodyCollapsed(t *testing.T) {
	// The count marker is split across lines; selection collapses them.
	body := "Robotiseerimise nõustamine:\n2 kordne"
	counts := Services(body, LangEstonian, testCatalog())
	if counts[catalog.Robotics] != 2 {
		t.Fatalf("robotics = %d, want 2", counts[catalog.Robotics])
	}
}
