package textnorm

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "water", "water"},
		{"uppercase", "Water", "water"},
		{"punctuation", "Photosynthesis!", "photosynthesis"},
		{"whitespace", "  Water  ", "water"},
		{"inner whitespace", "what  is\tH2O", "what is h2o"},
		{"html tags", "<p>What is H2O commonly called?</p>", "what is h2o commonly called"},
		{"tag boundary becomes space", "first<br>second", "first second"},
		{"entities", "salt &amp; pepper", "salt pepper"},
		{"empty", "", ""},
		{"only whitespace", "   ", ""},
		{"only punctuation", "?!...", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"<p>What is H2O commonly called?</p>",
		"Photosynthesis!",
		"  Water  ",
		"salt &amp; pepper",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeCaseInsensitive(t *testing.T) {
	if Normalize("Photosynthesis!") != Normalize("photosynthesis") {
		t.Error("expected punctuation/case variants to normalize equal")
	}
}

func TestRatio(t *testing.T) {
	if got := Ratio("water", "water"); got != 1.0 {
		t.Errorf("Ratio of equal strings = %v, want 1.0", got)
	}
	if got := Ratio("", ""); got != 1.0 {
		t.Errorf("Ratio of empty strings = %v, want 1.0", got)
	}
	if got := Ratio("", "water"); got != 0.0 {
		t.Errorf("Ratio against empty = %v, want 0.0", got)
	}

	// Typo similarity must clear the default threshold.
	if got := Ratio("wter", "water"); got < 0.75 {
		t.Errorf("Ratio(wter, water) = %v, want >= 0.75", got)
	}
	// Unrelated words must not.
	if got := Ratio("gas", "water"); got >= 0.75 {
		t.Errorf("Ratio(gas, water) = %v, want < 0.75", got)
	}
}

func TestRatioBoundsAndSymmetry(t *testing.T) {
	pairs := [][2]string{
		{"water", "wter"},
		{"ice", "steam"},
		{"", "x"},
		{"what is h2o commonly called", "what is h2o called"},
	}
	for _, p := range pairs {
		ab := Ratio(p[0], p[1])
		ba := Ratio(p[1], p[0])
		if ab < 0 || ab > 1 {
			t.Errorf("Ratio(%q, %q) = %v out of [0,1]", p[0], p[1], ab)
		}
		if ab != ba {
			t.Errorf("Ratio not symmetric for (%q, %q): %v vs %v", p[0], p[1], ab, ba)
		}
	}
}

func TestStripTagsPlainTextUntouched(t *testing.T) {
	if got := StripTags("no markup here"); got != "no markup here" {
		t.Errorf("StripTags changed plain text: %q", got)
	}
}
