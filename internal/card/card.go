// Package card holds the pure helpers the terminal uses while the cardholder
// is typing: brand detection from the PAN prefix, display formatting for the
// card number and expiry date, and the expiry check.
package card

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Brand is a card network inferred from the PAN prefix.
type Brand string

const (
	BrandVisa       Brand = "visa"
	BrandMastercard Brand = "mastercard"
	BrandAmex       Brand = "amex"
	BrandDiscover   Brand = "discover"
	BrandUnknown    Brand = "unknown"
)

// WireCode returns the gateway vocabulary for the brand. BrandUnknown has no
// wire code; callers decide the fallback.
func (b Brand) WireCode() string {
	switch b {
	case BrandVisa:
		return "VISA"
	case BrandMastercard:
		return "MAST"
	case BrandAmex:
		return "AMEX"
	case BrandDiscover:
		return "DISC"
	}
	return ""
}

// Digits strips every non-digit from s.
func Digits(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

// DetectBrand matches the numeric prefix of number against the known ranges:
// 4 is visa, 51-55 and 22-27 are mastercard, 34 and 37 are amex, 6011 and 65
// are discover. Anything else, including the empty string, is BrandUnknown.
func DetectBrand(number string) Brand {
	num := Digits(number)
	if num == "" {
		return BrandUnknown
	}

	if num[0] == '4' {
		return BrandVisa
	}
	if len(num) >= 2 {
		two := num[:2]
		if two >= "51" && two <= "55" {
			return BrandMastercard
		}
		if two >= "22" && two <= "27" {
			return BrandMastercard
		}
		if two == "34" || two == "37" {
			return BrandAmex
		}
		if two == "65" {
			return BrandDiscover
		}
	}
	if strings.HasPrefix(num, "6011") {
		return BrandDiscover
	}

	return BrandUnknown
}

// FormatNumber groups the digits of number for display: 4-6-5 for amex,
// 4-4-4-4 for everything else. A trailing partial group is kept as-is so the
// number can be formatted while it is still being typed.
func FormatNumber(number string) string {
	num := Digits(number)
	if num == "" {
		return ""
	}

	var sizes []int
	if DetectBrand(num) == BrandAmex {
		sizes = []int{4, 6, 5}
	} else {
		sizes = []int{4, 4, 4, 4}
	}

	groups := make([]string, 0, len(sizes))
	for _, size := range sizes {
		if len(num) == 0 {
			break
		}
		if size > len(num) {
			size = len(num)
		}
		groups = append(groups, num[:size])
		num = num[size:]
	}
	// digits beyond the expected length stay in the last group
	if len(num) > 0 {
		groups[len(groups)-1] += num
	}

	return strings.Join(groups, " ")
}

// FormatExpiry strips non-digits from raw and inserts the "/" separator once
// at least three digits are present, producing "MM" or "MM/YY".
func FormatExpiry(raw string) string {
	cleaned := Digits(raw)
	if len(cleaned) > 4 {
		cleaned = cleaned[:4]
	}
	if len(cleaned) <= 2 {
		return cleaned
	}
	return cleaned[:2] + "/" + cleaned[2:]
}

// ParseExpiry parses a strict "MM/YY" expiry into its calendar month and
// four-digit year (20YY).
func ParseExpiry(mmYY string) (month, year int, err error) {
	if len(mmYY) != 5 || mmYY[2] != '/' {
		return 0, 0, fmt.Errorf("expiry must be MM/YY")
	}
	mm, err := strconv.Atoi(mmYY[:2])
	if err != nil {
		return 0, 0, fmt.Errorf("expiry must be digits: MM/YY")
	}
	yy, err := strconv.Atoi(mmYY[3:])
	if err != nil {
		return 0, 0, fmt.Errorf("expiry must be digits: MM/YY")
	}
	if mm < 1 || mm > 12 {
		return 0, 0, fmt.Errorf("expiry month must be 01..12")
	}
	return mm, 2000 + yy, nil
}

// IsExpired reports whether the "MM/YY" expiry names a calendar month
// strictly before the calendar month of now. Malformed input is treated as
// still being typed and is never expired; ParseExpiry reports the error.
func IsExpired(mmYY string, now time.Time) bool {
	month, year, err := ParseExpiry(mmYY)
	if err != nil {
		return false
	}
	if year != now.Year() {
		return year < now.Year()
	}
	return month < int(now.Month())
}
