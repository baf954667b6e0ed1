package orders

import "testing"

func TestDiscountPercentParsesStringValues(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"", 0},
		{"  ", 0},
		{"10", 10},
		{"10%", 10},
		{" 25 % ", 25},
		{"12.5", 12.5},
		{"abc", 0},
		{"-5", 0},
		{"150", 100},
	}
	for _, tc := range tests {
		if got := discountPercent(tc.raw); got != tc.want {
			t.Fatalf("discountPercent(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestEffectiveUnitPrice(t *testing.T) {
	if got := effectiveUnitPrice(100, "10"); got != 90 {
		t.Fatalf("expected 90, got %v", got)
	}
	if got := effectiveUnitPrice(100, ""); got != 100 {
		t.Fatalf("expected undiscounted price, got %v", got)
	}
	if got := effectiveUnitPrice(100, "garbage"); got != 100 {
		t.Fatalf("malformed discount must mean full price, got %v", got)
	}
	if got := effectiveUnitPrice(100, "200"); got != 0 {
		t.Fatalf("discount is clamped to 100%%, got %v", got)
	}
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		value float64
		want  int64
	}{
		{0, 0},
		{1, 100},
		{19.99, 1999},
		{0.1, 10},
	}
	for _, tc := range tests {
		if got := minorUnits(tc.value); got != tc.want {
			t.Fatalf("minorUnits(%v) = %d, want %d", tc.value, got, tc.want)
		}
	}
}
