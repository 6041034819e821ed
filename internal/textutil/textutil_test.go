package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"  My: Film.kdenlive ": "My- Film.kdenlive",
		"a/b\\c*d":             "a-b-c-d",
		"what?<>|\"":           "what",
		"   ":                  "",
	}
	for in, want := range cases {
		if got := SanitizeFileName(in); got != want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHiddenSibling(t *testing.T) {
	if got := HiddenSibling("cut.kdenlive", ".lock"); got != ".cut.kdenlive.lock" {
		t.Fatalf("unexpected sibling %q", got)
	}
	if got := HiddenSibling("???", ".lock"); got != ".project.lock" {
		t.Fatalf("expected fallback name, got %q", got)
	}
}

func TestYesNo(t *testing.T) {
	if YesNo(true) != "yes" || YesNo(false) != "no" {
		t.Fatal("unexpected yes/no rendering")
	}
	if Ternary(false, 1, 2) != 2 {
		t.Fatal("ternary picked the wrong branch")
	}
}
