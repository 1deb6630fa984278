package sanitizer

import (
	"reflect"
	"testing"
)

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"only spaces", "   ", ""},
		{"trim ends", "  Asha Verma  ", "Asha Verma"},
		{"collapse runs", "Asha   \t Verma", "Asha Verma"},
		{"newlines", "Asha\nVerma", "Asha Verma"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrimAndNormalize(tt.input); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Asha@Example.COM "); got != "asha@example.com" {
		t.Errorf("expected lowercase trimmed email, got %q", got)
	}
}

func TestNormalizeSlug(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Lakeview Cottage", "lakeview-cottage"},
		{"  Garden  Villa #2 ", "garden-villa-2"},
		{"---", ""},
		{"suite", "suite"},
	}

	for _, tt := range tests {
		if got := NormalizeSlug(tt.input); got != tt.want {
			t.Errorf("NormalizeSlug(%q): expected %q, got %q", tt.input, tt.want, got)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid E.164", "+919876543210", "+919876543210"},
		{"national with spaces", "098765 43210", "+919876543210"},
		{"empty", "", ""},
		{"garbage", "not-a-phone", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePhone(tt.input); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNormalizeIDs(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"dedupe keeps order", []string{"b", "a", "b", "c"}, []string{"b", "a", "c"}},
		{"drops empties", []string{" ", "a", ""}, []string{"a"}},
		{"trims", []string{" a ", "a"}, []string{"a"}},
		{"nil input", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeIDs(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
