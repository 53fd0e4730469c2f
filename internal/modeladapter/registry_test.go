package modeladapter_test

import (
	"testing"

	"subtitlegen/internal/langtag"
	"subtitlegen/internal/modeladapter"
)

func TestRegistryLookupFallsBackToStandardMode(t *testing.T) {
	registry := modeladapter.NewRegistry([]modeladapter.Template{
		{Language: "en", Mode: langtag.ModeStandard, Text: "translate plainly"},
	})

	tmpl, ok := registry.Lookup("en", langtag.ModeSDH)
	if !ok {
		t.Fatal("expected a fallback hit for sdh mode")
	}
	if tmpl.Text != "translate plainly" {
		t.Fatalf("unexpected fallback template: %+v", tmpl)
	}
}

func TestRegistryLookupMissesWithoutStandardFallback(t *testing.T) {
	registry := modeladapter.NewRegistry(nil)
	if _, ok := registry.Lookup("es", langtag.ModeStandard); ok {
		t.Fatal("expected no template for an empty registry")
	}
}

func TestRegistryAssignsStableContentVersion(t *testing.T) {
	a := modeladapter.NewRegistry([]modeladapter.Template{{Language: "en", Text: "same text"}})
	b := modeladapter.NewRegistry([]modeladapter.Template{{Language: "en", Text: "same text"}})
	tmplA, _ := a.Lookup("en", langtag.ModeStandard)
	tmplB, _ := b.Lookup("en", langtag.ModeStandard)
	if tmplA.Version != tmplB.Version {
		t.Fatalf("expected identical content to produce identical versions: %s vs %s", tmplA.Version, tmplB.Version)
	}
}
