package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmountToCents(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"dot separator", "12.34", 1234, false},
		{"comma separator", "12,34", 1234, false},
		{"no fraction", "12", 1200, false},
		{"one decimal", "12.3", 1230, false},
		{"third decimal rounds down", "12.344", 1234, false},
		{"third decimal rounds up", "12.345", 1235, false},
		{"leading dot", ".50", 50, false},
		{"empty", "", 0, true},
		{"zero", "0", 0, true},
		{"zero with decimals", "0.00", 0, true},
		{"negative", "-5.00", 0, true},
		{"explicit plus", "+5.00", 0, true},
		{"letters", "12a.34", 0, true},
		{"two dots", "1.2.3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmountToCents(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAmountToCents(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAmountToCents(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMoneyDecimalRoundTrip(t *testing.T) {
	amounts := []int64{0, 1, 99, 100, 123456, -5000}
	for _, cents := range amounts {
		m := Money{Cents: cents}
		if got := FromDecimal(m.Decimal()); got != m {
			t.Errorf("round trip %d -> %v -> %d", cents, m.Decimal(), got.Cents)
		}
	}
}

func TestFromDecimalRounding(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"12.344", 1234},
		{"12.335", 1234}, // banker's rounding is not used; half rounds away
		{"12.345", 1235},
		{"-12.345", -1235},
	}
	for _, tt := range tests {
		d, err := decimal.NewFromString(tt.input)
		if err != nil {
			t.Fatalf("bad fixture %q: %v", tt.input, err)
		}
		if got := FromDecimal(d); got.Cents != tt.want {
			t.Errorf("FromDecimal(%s) = %d, want %d", tt.input, got.Cents, tt.want)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := Money{Cents: 1500}
	b := Money{Cents: 700}
	if got := a.Add(b); got.Cents != 2200 {
		t.Errorf("Add = %d, want 2200", got.Cents)
	}
	if got := a.Sub(b); got.Cents != 800 {
		t.Errorf("Sub = %d, want 800", got.Cents)
	}
	if got := b.Sub(a); got.Cents != -800 {
		t.Errorf("Sub negative = %d, want -800", got.Cents)
	}
	if got := a.Neg(); got.Cents != -1500 {
		t.Errorf("Neg = %d, want -1500", got.Cents)
	}
}
