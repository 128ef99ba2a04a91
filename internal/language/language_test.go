package language

import "testing"

func TestNormalizeHint(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{" auto ", ""},
		{"AUTO", ""},
		{"en", "en"},
		{"EN", "en"},
		{"en-US", "en"},
		{"pt_BR", "pt"},
		{"eng", "en"},
		{"fra", "fr"},
		{"english", "en"},
		{"French", "fr"},
	}
	for _, tt := range tests {
		got, err := NormalizeHint(tt.input)
		if err != nil {
			t.Fatalf("NormalizeHint(%q): %v", tt.input, err)
		}
		if got != tt.expected {
			t.Errorf("NormalizeHint(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestNormalizeHintRejectsGarbage(t *testing.T) {
	for _, input := range []string{"not a language", "12", "en--us"} {
		if _, err := NormalizeHint(input); err == nil {
			t.Errorf("NormalizeHint(%q) expected error", input)
		}
	}
}

func TestToISO2AndISO3(t *testing.T) {
	if got := ToISO2("spa"); got != "es" {
		t.Fatalf("ToISO2(spa) = %q", got)
	}
	if got := ToISO2("nonsense words"); got != "" {
		t.Fatalf("ToISO2 unknown = %q", got)
	}
	if got := ToISO3("de"); got != "deu" {
		t.Fatalf("ToISO3(de) = %q", got)
	}
	if got := ToISO3(""); got != "und" {
		t.Fatalf("ToISO3 empty = %q", got)
	}
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"en":   "English",
		"fr":   "French",
		"auto": "Auto-detect",
		"":     "Auto-detect",
	}
	for input, want := range tests {
		if got := DisplayName(input); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", input, got, want)
		}
	}
}
