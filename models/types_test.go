package models

import "testing"

func TestListKindValid(t *testing.T) {
	tests := []struct {
		kind     ListKind
		expected bool
	}{
		{KindShopping, true},
		{KindInventory, true},
		{"Shopping", false},
		{"wish", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := tt.kind.Valid(); got != tt.expected {
			t.Errorf("ListKind(%q).Valid() = %v, want %v", tt.kind, got, tt.expected)
		}
	}
}
