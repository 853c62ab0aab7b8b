package recordstore

import "testing"

func TestSchemaResolve(t *testing.T) {
	schema := NewSchema("AI nõustamine", map[string]PropType{
		"Projekt":               TypeTitle,
		"Registrikood":          TypeNumber,
		"Digiküpsuse hindamine": TypeRelation,
	})

	cases := []struct {
		in   string
		want string
	}{
		{"Digiküpsuse hindamine", "Digiküpsuse hindamine"},
		{"digiküpsuse  hindamine", "Digiküpsuse hindamine"},
		{"DIGIKÜPSUSE HINDAMINE ", "Digiküpsuse hindamine"},
		{"registrikood", "Registrikood"},
	}
	for _, tc := range cases {
		got, ok := schema.Resolve(tc.in)
		if !ok || got != tc.want {
			t.Errorf("Resolve(%q) = %q/%v, want %q", tc.in, got, ok, tc.want)
		}
	}

	if _, ok := schema.Resolve("Ei eksisteeri"); ok {
		t.Fatal("Resolve must fail for unknown properties")
	}
}

func TestSchemaResolveDecomposedForm(t *testing.T) {
	// The store may deliver property names in NFD; configured literals are
	// NFC. "ü" here is u + combining diaeresis.
	schema := NewSchema("", map[string]PropType{
		"Digiküpsuse hindamine": TypeRelation,
	})
	if _, ok := schema.Resolve("Digiku\u0308psuse hindamine"); !ok {
		t.Fatal("NFC/NFD spellings of the same property must resolve")
	}
}

func TestPageRelations(t *testing.T) {
	page := &Page{
		ID: "p1",
		Props: Properties{
			"Organisation": Relation("a", "b"),
			"Name":         Title("Mari"),
		},
	}
	rels := page.Relations("Organisation")
	if len(rels) != 2 || rels[0] != "a" || rels[1] != "b" {
		t.Fatalf("Relations = %v", rels)
	}
	if page.Relations("Name") != nil {
		t.Fatal("non-relation property must yield nil")
	}
	var nilPage *Page
	if nilPage.Relations("x") != nil {
		t.Fatal("nil page must yield nil")
	}
}

func TestSchemaTypeOf(t *testing.T) {
	schema := NewSchema("", map[string]PropType{"Registrikood": TypeRollup})
	if schema.TypeOf("Registrikood") != TypeRollup {
		t.Fatalf("TypeOf = %q", schema.TypeOf("Registrikood"))
	}
}
