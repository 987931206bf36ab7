package textnorm

import (
	"reflect"
	"testing"
)

func TestNormalizeString_AccentsAndPunctuation(t *testing.T) {
	t.Parallel()

	got := NormalizeString("  Marathon de Sainte-Geneviève (Édition officielle)!  ")
	want := "marathon de sainte genevieve edition officielle"
	if got != want {
		t.Fatalf("unexpected normalization: got %q want %q", got, want)
	}
}

func TestNormalizeString_Idempotent(t *testing.T) {
	t.Parallel()

	once := NormalizeString("Trail du Mont-Blanc 2025")
	twice := NormalizeString(once)
	if once != twice {
		t.Fatalf("normalization not idempotent: %q then %q", once, twice)
	}
}

func TestNormalizeString_Empty(t *testing.T) {
	t.Parallel()

	if got := NormalizeString("  \t "); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}

func TestNormalizeCity_SaintVariants(t *testing.T) {
	t.Parallel()

	variants := []string{"Saint-Étienne", "St Etienne", "ST-ETIENNE", "saint etienne"}
	want := "saint etienne"
	for _, variant := range variants {
		if got := NormalizeCity(variant); got != want {
			t.Fatalf("city variant %q: got %q want %q", variant, got, want)
		}
	}

	if got := NormalizeCity("Sainte-Foy"); got != "saint foy" {
		t.Fatalf("expected sainte to collapse to saint, got %q", got)
	}
}

func TestNormalizeCity_StripsCedex(t *testing.T) {
	t.Parallel()

	if got := NormalizeCity("Paris Cedex 15"); got != "paris" {
		t.Fatalf("expected cedex suffix to be dropped, got %q", got)
	}
	if got := NormalizeCity("Lyon CEDEX"); got != "lyon" {
		t.Fatalf("expected bare cedex to be dropped, got %q", got)
	}
}

func TestRemoveEditionNumber(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"marathon de paris 2025", "marathon de paris"},
		{"3eme edition du trail des lacs", "du trail des lacs"},
		{"21e edition marathon du medoc", "marathon du medoc"},
		{"course des remparts 10e", "course des remparts"},
		{"10k de balma", "10k de balma"},
	}
	for _, tc := range cases {
		if got := RemoveEditionNumber(tc.in); got != tc.want {
			t.Fatalf("RemoveEditionNumber(%q): got %q want %q", tc.in, got, tc.want)
		}
	}
}

func TestRemoveStopwords(t *testing.T) {
	t.Parallel()

	got := RemoveStopwords("marathon de la ville et du lac")
	if got != "marathon ville lac" {
		t.Fatalf("unexpected stopword removal: %q", got)
	}
}

func TestKeywords_OrderAndFiltering(t *testing.T) {
	t.Parallel()

	got := Keywords("Semi-Marathon de Boulogne-Billancourt 2025")
	want := []string{"billancourt", "marathon", "boulogne", "semi"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected keywords: got %v want %v", got, want)
	}
}

func TestKeywords_DropShortTokens(t *testing.T) {
	t.Parallel()

	for _, keyword := range Keywords("Le 10 km de Py") {
		if len([]rune(keyword)) < 3 {
			t.Fatalf("expected short tokens to be dropped, found %q", keyword)
		}
	}
}

func TestTopKeywords(t *testing.T) {
	t.Parallel()

	got := TopKeywords("Semi-Marathon de Boulogne-Billancourt", 2)
	want := []string{"billancourt", "marathon"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected top keywords: got %v want %v", got, want)
	}

	if got := TopKeywords("", 3); got != nil {
		t.Fatalf("expected nil keywords for empty name, got %v", got)
	}
}

func TestKeywordSet(t *testing.T) {
	t.Parallel()

	set := KeywordSet("Marathon de Paris 2025")
	if len(set) != 2 {
		t.Fatalf("unexpected keyword set size: got %d want 2", len(set))
	}
	for _, keyword := range []string{"marathon", "paris"} {
		if _, ok := set[keyword]; !ok {
			t.Fatalf("expected keyword %q in set", keyword)
		}
	}
}
