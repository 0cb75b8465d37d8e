package payments

import "testing"

func TestNormalizePhoneNumber(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		want       string
		recognized bool
	}{
		{"leading 07", "0712345678", "254712345678", true},
		{"leading 01", "0112345678", "254112345678", true},
		{"bare subscriber number", "712345678", "254712345678", true},
		{"already international", "254712345678", "254712345678", true},
		{"plus prefixed", "+254712345678", "254712345678", true},
		{"spaces and dashes", "0712-345 678", "254712345678", true},
		{"too short", "12345", "12345", false},
		{"foreign number passes through digits-only", "+44 20 7946 0958", "442079460958", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, recognized := NormalizePhoneNumber(tt.input)
			if got != tt.want {
				t.Errorf("NormalizePhoneNumber(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if recognized != tt.recognized {
				t.Errorf("NormalizePhoneNumber(%q) recognized = %v, want %v", tt.input, recognized, tt.recognized)
			}
		})
	}
}
