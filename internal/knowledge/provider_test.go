package knowledge

import (
	"testing"
)

func TestExactAndAliasLookup(t *testing.T) {
	p := DefaultApplications()

	if !p.IsKnown("chrome") {
		t.Error("chrome should be known")
	}
	if !p.IsKnown("Google Chrome") {
		t.Error("alias lookup should be case-insensitive")
	}
	if p.IsKnown("definitely-not-an-app-xyz") {
		t.Error("unknown name should not resolve")
	}

	canon, ok := p.Resolve("visual studio code")
	if !ok || canon != "vscode" {
		t.Errorf("alias should resolve to canonical name, got %q ok=%v", canon, ok)
	}
}

func TestFuzzyLookup(t *testing.T) {
	p := DefaultApplications()

	canon, ok := p.Resolve("chrom")
	if !ok || canon != "chrome" {
		t.Errorf("near-miss should fuzzy-resolve to chrome, got %q ok=%v", canon, ok)
	}

	// Short junk must not fuzzy-match.
	if p.IsKnown("xq") {
		t.Error("two-letter junk should not resolve")
	}
	// Distant words must not resolve either.
	if p.IsKnown("weather in berlin") {
		t.Error("unrelated phrase should not resolve")
	}
}

func TestAliases(t *testing.T) {
	p := DefaultApplications()
	as := p.Aliases("chrome")
	if len(as) == 0 {
		t.Fatal("chrome should have aliases")
	}
	if p.Aliases("nonexistent-app") != nil {
		t.Error("unknown name should have nil aliases")
	}
}

func TestAddAfterConstruction(t *testing.T) {
	p := NewStaticProvider(nil)
	p.Add("blender", "3d editor")
	if !p.IsKnown("blender") || !p.IsKnown("3d editor") {
		t.Error("Add should register name and aliases")
	}
}

func TestComposite(t *testing.T) {
	apps := NewStaticProvider(map[string][]string{"chrome": {}})
	files := NewStaticProvider(map[string][]string{"report.pdf": {}})
	c := Composite{apps, files}

	if !c.IsKnown("chrome") || !c.IsKnown("report.pdf") {
		t.Error("composite should answer from any member")
	}
	if c.IsKnown("nothing") {
		t.Error("composite should reject names unknown to all members")
	}
}
