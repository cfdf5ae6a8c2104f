package title

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"SALAH ET FATI", "Salah Et Fati"},
		{"salah et fati", "Salah Et Fati"},
		{"  Salah   et\tFati \n", "Salah Et Fati"},
		{"TOM &amp; JERRY", "Tom & Jerry"},
		{"caf&eacute; noir", "Café Noir"},
		{"القصبة", "القصبة"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_SameIdentity(t *testing.T) {
	a := Normalize("SALAH ET FATI")
	b := Normalize("Salah Et FATI")
	if a != b {
		t.Errorf("expected equal identities, got %q and %q", a, b)
	}
}

func TestFromSlug(t *testing.T) {
	if got := FromSlug("australias-open"); got != "Australias Open" {
		t.Errorf("FromSlug = %q", got)
	}
	if got := FromSlug(""); got != "" {
		t.Errorf("FromSlug(\"\") = %q", got)
	}
}

func TestOrDefault(t *testing.T) {
	if got := OrDefault("", "UnknownSeries"); got != "UnknownSeries" {
		t.Errorf("OrDefault empty = %q", got)
	}
	if got := OrDefault("LALLA FATEMA", "UnknownSeries"); got != "Lalla Fatema" {
		t.Errorf("OrDefault = %q", got)
	}
}
