package entity

import "testing"

func TestCoercePageType(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"exact bill detail", "Bill Detail", PageTypeBillDetail},
		{"exact final bill", "Final Bill", PageTypeFinalBill},
		{"exact pharmacy", "Pharmacy", PageTypePharmacy},
		{"pharmacy variation", "pharmacy bill", PageTypePharmacy},
		{"final variation", "Final Summary", PageTypeFinalBill},
		{"summary variation", "page summary", PageTypeFinalBill},
		{"unrecognized", "random text", PageTypeBillDetail},
		{"empty", "", PageTypeBillDetail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CoercePageType(tt.input); got != tt.expected {
				t.Errorf("CoercePageType(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTokenUsageAdd(t *testing.T) {
	u := TokenUsage{}
	u.Add(TokenUsage{TotalTokens: 100, InputTokens: 70, OutputTokens: 30})
	u.Add(TokenUsage{TotalTokens: 50, InputTokens: 20, OutputTokens: 30})

	if u.TotalTokens != 150 {
		t.Errorf("TotalTokens = %d, want 150", u.TotalTokens)
	}
	if u.InputTokens != 90 {
		t.Errorf("InputTokens = %d, want 90", u.InputTokens)
	}
	if u.OutputTokens != 60 {
		t.Errorf("OutputTokens = %d, want 60", u.OutputTokens)
	}
}
