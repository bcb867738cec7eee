// Package barcode canonicalises scanned barcode strings and matches them
// against stored EAN-13 values. Scanner firmwares disagree about check
// digits: some emit the 11-digit payload, some a 12-digit GTIN without a
// check digit, some the full EAN-13. Matching therefore compares the
// 11-digit payload (positions 2..12 of an EAN-13) when both sides are
// numeric.
//
// The package is a stateless library shared by the audit core and the
// inventory service; neither side calls the other for canonicalisation.
package barcode

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/assettrack/backend/internal/apperr"
)

// Normalize strips all whitespace from raw. An empty result is a validation
// error ("barcode_value_required").
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()
	if out == "" {
		return "", apperr.Validation("barcode_value_required")
	}
	return out, nil
}

// CheckDigit computes the EAN-13 check digit for a 12-digit payload:
// weighted sum of digits (odd positions x1, even positions x3), mod 10,
// complement to 10 mod 10.
func CheckDigit(value12 string) (string, error) {
	if len(value12) != 12 || !isDigits(value12) {
		return "", fmt.Errorf("ean13 payload must be 12 digits, got %q", value12)
	}
	sum := 0
	for i, r := range value12 {
		d := int(r - '0')
		if i%2 == 0 {
			sum += d
		} else {
			sum += 3 * d
		}
	}
	return string(rune('0' + (10-sum%10)%10)), nil
}

// Canonical normalises raw and, when the result is a 12-digit GTIN, appends
// the EAN-13 check digit. This is the form stored barcode values carry.
func Canonical(raw string) (string, error) {
	v, err := Normalize(raw)
	if err != nil {
		return "", err
	}
	if len(v) == 12 && isDigits(v) {
		cd, err := CheckDigit(v)
		if err != nil {
			return "", err
		}
		return v + cd, nil
	}
	return v, nil
}

// Payload11 extracts the 11-digit payload shared by all scanner variants.
// Returns "" when the value is not an 11/12/13-digit numeric string.
func Payload11(normalized string) string {
	if !isDigits(normalized) {
		return ""
	}
	switch len(normalized) {
	case 13:
		return normalized[1:12]
	case 12:
		return normalized[:11]
	case 11:
		return normalized
	}
	return ""
}

// Matches reports whether a scanned value matches a stored value: exact
// equality, or identical 11-digit payloads when the stored value is a full
// EAN-13. Symmetric across check-digit conventions.
func Matches(scanned, stored string) bool {
	if stored == scanned {
		return true
	}
	payload := Payload11(scanned)
	if payload == "" {
		return false
	}
	if len(stored) != 13 || !isDigits(stored) {
		return false
	}
	return stored[1:12] == payload
}

// MatchCondition renders the match rule as an indexable SQL predicate over
// column, using $n placeholders starting at argIndex. The returned args line
// up with the placeholders.
func MatchCondition(column, scanned string, argIndex int) (string, []interface{}) {
	cond := fmt.Sprintf("%s = $%d", column, argIndex)
	args := []interface{}{scanned}
	if payload := Payload11(scanned); payload != "" {
		cond = fmt.Sprintf("(%s OR (length(%s) = 13 AND substr(%s, 2, 11) = $%d))",
			cond, column, column, argIndex+1)
		args = append(args, payload)
	}
	return cond, args
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
