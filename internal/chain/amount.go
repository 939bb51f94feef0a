package chain

import (
	"math/big"
	"strings"

	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

// ParseDecimalAmount parses a user-entered decimal amount string to a
// big.Int in the smallest on-chain unit. For example, "1.5" with 18
// decimals returns 1500000000000000000. Negative, empty, and malformed
// amounts fail with ErrInvalidAmount; so does zero, since a zero-value
// transfer is never meaningful over this service.
//
//nolint:gocognit,gocyclo // Decimal parsing requires sequential validation steps
func ParseDecimalAmount(amount string, decimalPlaces int) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" || strings.HasPrefix(amount, "-") || strings.HasPrefix(amount, "+") {
		return nil, dialerr.ErrInvalidAmount
	}

	parts := strings.Split(amount, ".")
	if len(parts) > 2 {
		return nil, dialerr.ErrInvalidAmount
	}

	intPart := parts[0]
	decPart := ""
	if len(parts) == 2 {
		decPart = parts[1]
	}
	if intPart == "" && decPart == "" {
		return nil, dialerr.ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}

	for _, c := range intPart {
		if c < '0' || c > '9' {
			return nil, dialerr.ErrInvalidAmount
		}
	}
	intVal, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return nil, dialerr.ErrInvalidAmount
	}

	multiplier := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimalPlaces)), nil)
	result := new(big.Int).Mul(intVal, multiplier)

	if decPart != "" {
		for _, c := range decPart {
			if c < '0' || c > '9' {
				return nil, dialerr.ErrInvalidAmount
			}
		}

		// Pad or truncate to the chain's precision
		for len(decPart) < decimalPlaces {
			decPart += "0"
		}
		decPart = decPart[:decimalPlaces]

		decVal, ok := new(big.Int).SetString(decPart, 10)
		if !ok {
			return nil, dialerr.ErrInvalidAmount
		}
		result.Add(result, decVal)
	}

	if result.Sign() <= 0 {
		return nil, dialerr.ErrInvalidAmount
	}

	return result, nil
}

// FormatDecimalAmount converts a smallest-unit big.Int to a human-readable
// string with the given decimal places. Trailing zeros after the decimal
// point are removed: 1500000000000000000 with 18 decimals returns "1.5".
func FormatDecimalAmount(amount *big.Int, decimalPlaces int) string {
	if amount == nil {
		return "0"
	}

	str := amount.String()

	for len(str) <= decimalPlaces {
		str = "0" + str
	}

	decimalPos := len(str) - decimalPlaces
	result := str[:decimalPos] + "." + str[decimalPos:]

	for len(result) > 1 && result[len(result)-1] == '0' && result[len(result)-2] != '.' {
		result = result[:len(result)-1]
	}
	if strings.HasSuffix(result, ".0") {
		result = result[:len(result)-2]
	}

	return result
}
