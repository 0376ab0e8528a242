package market

import (
	"testing"
	"time"
)

func TestQuoteMidAndSpread(t *testing.T) {
	q := Quote{Symbol: "XYZ", Bid: 99.5, Ask: 100.5, Timestamp: time.Now()}

	if got := q.Mid(); got != 100.0 {
		t.Errorf("Mid() = %f, want 100.0", got)
	}
	if got := q.Spread(); got != 1.0 {
		t.Errorf("Spread() = %f, want 1.0", got)
	}
}

func TestQuoteValidate(t *testing.T) {
	cases := []struct {
		name    string
		q       Quote
		wantErr bool
	}{
		{"valid", Quote{Symbol: "XYZ", Bid: 99, Ask: 101}, false},
		{"crossed", Quote{Symbol: "XYZ", Bid: 101, Ask: 99}, true},
		{"locked", Quote{Symbol: "XYZ", Bid: 100, Ask: 100}, true},
		{"zero bid", Quote{Symbol: "XYZ", Bid: 0, Ask: 100}, true},
		{"negative ask", Quote{Symbol: "XYZ", Bid: 1, Ask: -1}, true},
	}

	for _, tc := range cases {
		err := tc.q.Validate()
		if tc.wantErr && err == nil {
			t.Errorf("%s: expected error, got nil", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
		}
	}
}
