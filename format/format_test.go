package format

import "testing"

func TestNormalizeLineEndings(t *testing.T) {
	got := Normalize("a\r\nb\rc\n")
	if got != "a\nb\nc\n" {
		t.Fatalf("expected %q, got %q", "a\nb\nc\n", got)
	}
}

func TestNormalizeStripsTrailingWhitespace(t *testing.T) {
	got := Normalize("const x = 1;   \nconst y = 2;\t\n")
	if got != "const x = 1;\nconst y = 2;\n" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestNormalizeSingleTrailingNewline(t *testing.T) {
	cases := map[string]string{
		"x":         "x\n",
		"x\n":       "x\n",
		"x\n\n\n":   "x\n",
		"x\n\ny\n":  "x\n\ny\n",
		"":          "",
		"   \n\t\n": "",
		"\n\n":      "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"a\r\nb  \n\n\n",
		"package main\n\nfunc main() {}\t\n",
		"",
		"one",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalizePreservesInteriorWhitespace(t *testing.T) {
	got := Normalize("\tindented\n  spaced\n")
	if got != "\tindented\n  spaced\n" {
		t.Fatalf("leading whitespace altered: %q", got)
	}
}
