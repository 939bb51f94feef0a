package chain

import (
	"math/big"
	"testing"

	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

func TestParseDecimalAmount_ValidAmounts(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int
		want     string
	}{
		{"1.5 with 18 decimals", "1.5", 18, "1500000000000000000"},
		{"0.1 with 9 decimals", "0.1", 9, "100000000"},
		{"100 no decimal", "100", 18, "100000000000000000000"},
		{".5 no integer", ".5", 18, "500000000000000000"},
		{"many decimals truncated", "1.123456789012345678901234", 18, "1123456789012345678"},
		{"fewer decimals padded", "1.1", 9, "1100000000"},
		{"surrounding spaces trimmed", " 2 ", 9, "2000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimalAmount(tt.amount, tt.decimals)
			if err != nil {
				t.Fatalf("ParseDecimalAmount() unexpected error = %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseDecimalAmount() = %s, want %s", got.String(), tt.want)
			}
		})
	}
}

func TestParseDecimalAmount_InvalidAmounts(t *testing.T) {
	tests := []struct {
		name   string
		amount string
	}{
		{"empty string", ""},
		{"negative", "-1"},
		{"explicit plus", "+1"},
		{"zero", "0"},
		{"zero point zero", "0.0"},
		{"multiple decimals", "1.2.3"},
		{"letters", "abc"},
		{"letters in decimal", "1.abc"},
		{"letters in integer", "abc.1"},
		{"lone dot", "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDecimalAmount(tt.amount, 18)
			if !dialerr.Is(err, dialerr.ErrInvalidAmount) {
				t.Errorf("ParseDecimalAmount(%q) error = %v, want ErrInvalidAmount", tt.amount, err)
			}
		})
	}
}

func TestFormatDecimalAmount(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int
		want     string
	}{
		{"trailing zeros trimmed", "1500000000000000000", 18, "1.5"},
		{"whole number", "2000000000", 9, "2"},
		{"sub-unit value", "1", 9, "0.000000001"},
		{"zero", "0", 18, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := new(big.Int).SetString(tt.amount, 10)
			if got := FormatDecimalAmount(v, tt.decimals); got != tt.want {
				t.Errorf("FormatDecimalAmount(%s) = %s, want %s", tt.amount, got, tt.want)
			}
		})
	}

	if got := FormatDecimalAmount(nil, 18); got != "0" {
		t.Errorf("FormatDecimalAmount(nil) = %s, want 0", got)
	}
}

func TestValidateAmount(t *testing.T) {
	if err := ValidateAmount(big.NewInt(1)); err != nil {
		t.Errorf("ValidateAmount(1) = %v, want nil", err)
	}
	for _, v := range []*big.Int{nil, big.NewInt(0), big.NewInt(-5)} {
		if err := ValidateAmount(v); !dialerr.Is(err, dialerr.ErrInvalidAmount) {
			t.Errorf("ValidateAmount(%v) = %v, want ErrInvalidAmount", v, err)
		}
	}
}
