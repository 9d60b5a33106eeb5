package classifier

import "testing"

func TestParseCategory(t *testing.T) {
	tests := []struct {
		label  string
		want   Category
		wantOK bool
	}{
		{"Productive", Productive, true},
		{"productive", Productive, true},
		{"  UNPRODUCTIVE  ", Unproductive, true},
		{"Unproductive.", "", false},
		{"produtivo", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseCategory(tt.label)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseCategory(%q) = (%v, %v), want (%v, %v)",
				tt.label, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCategoryValid(t *testing.T) {
	if !Productive.Valid() || !Unproductive.Valid() {
		t.Error("expected both categories to be valid")
	}
	if Category("Spam").Valid() {
		t.Error("expected unknown category to be invalid")
	}
}
