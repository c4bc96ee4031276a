// Package textx contains tests for the text utilities.
package textx

import "testing"

func TestSanitizeText(t *testing.T) {
	in := "he\x00llo\nwo\x7frld\t!"
	got := SanitizeText(in)
	if got != "hello\nworld\t!" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestEscapeMarkup(t *testing.T) {
	got := EscapeMarkup(`R&D <teams> love "quotes"`)
	want := `R&amp;D &lt;teams&gt; love "quotes"`
	if got != want {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestSpokenMarkup(t *testing.T) {
	got := SpokenMarkup("Tom & Jerry")
	want := `<speak version="1.0" xml:lang="en-US">Tom &amp; Jerry</speak>`
	if got != want {
		t.Fatalf("unexpected: %q", got)
	}
}
