package engine

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// Tokenize maps a matched value to its replacement token. It is a pure
// function of (type, strategy, value): no state is consulted or mutated,
// so identical inputs yield identical tokens within and across calls.
func Tokenize(kind StrategyKind, et EntityType, value string) string {
	fn, ok := strategyTable[kind]
	if !ok {
		fn = redactToken
	}
	return fn(et, value)
}

var strategyTable = map[StrategyKind]func(EntityType, string) string{
	StrategyRedact:    redactToken,
	StrategyMask:      maskToken,
	StrategyHash:      hashToken,
	StrategyPseudonym: pseudonymToken,
}

func redactToken(et EntityType, _ string) string {
	return fmt.Sprintf("[REDACTED:%s]", et)
}

func maskToken(et EntityType, value string) string {
	return fmt.Sprintf("[MASK:%s:%s]", et, maskValue(value))
}

func hashToken(et EntityType, value string) string {
	return fmt.Sprintf("[HASH:%s:%s…]", et, digestPrefix(value))
}

func pseudonymToken(et EntityType, value string) string {
	return fmt.Sprintf("[PSEUDONYM:%s:%s %03d]", et, pseudonymLabel(et), pseudonymNumber(value))
}

// digestPrefix is the first 8 hex characters of the SHA-256 of the raw
// value. Unsalted on purpose: repeated values must hash identically across
// calls so downstream correlation keeps working.
func digestPrefix(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:4])
}

// pseudonymNumber reduces the same digest modulo 1000. The label space is
// deliberately small and collisions between distinct values are expected;
// labels are repeatable, not unique.
func pseudonymNumber(value string) int {
	sum := sha256.Sum256([]byte(value))
	return int(binary.BigEndian.Uint32(sum[:4]) % 1000)
}

var pseudonymLabels = map[EntityType]string{
	EntityPerson:     "Person",
	EntitySingleName: "Name",
	EntityOrg:        "Organization",
	EntityEmail:      "Email",
	EntityPhone:      "Phone",
	EntityAddress:    "Address",
	EntityURL:        "Site",
}

func pseudonymLabel(et EntityType) string {
	if label, ok := pseudonymLabels[et]; ok {
		return label
	}
	// Fall back to a title-cased rendering of the type name.
	lower := strings.ToLower(strings.ReplaceAll(string(et), "_", " "))
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// maskValue partially preserves the shape of a value. Email-like values
// mask local part and domain independently, numeric values keep the last
// four digits, everything else keeps a sliver of each end. Values of two
// characters or fewer are masked entirely.
func maskValue(value string) string {
	if len(value) <= 2 {
		return strings.Repeat("*", len(value))
	}
	if strings.Contains(value, "@") {
		return maskEmail(value)
	}
	if isNumericLike(value) {
		return maskNumeric(value)
	}
	visible := len(value) / 3
	if visible > 2 {
		visible = 2
	}
	if visible == 0 {
		visible = 1
	}
	return value[:visible] + strings.Repeat("*", len(value)-2*visible) + value[len(value)-visible:]
}

func maskEmail(value string) string {
	at := strings.LastIndex(value, "@")
	local, domain := value[:at], value[at+1:]

	masked := keepEnds(local) + "@"
	if dot := strings.LastIndex(domain, "."); dot > 0 {
		masked += keepEnds(domain[:dot]) + domain[dot:]
	} else {
		masked += keepEnds(domain)
	}
	return masked
}

// keepEnds keeps the first and last character and stars the interior.
func keepEnds(s string) string {
	if len(s) <= 2 {
		return strings.Repeat("*", len(s))
	}
	return s[:1] + strings.Repeat("*", len(s)-2) + s[len(s)-1:]
}

func isNumericLike(value string) bool {
	hasDigit := false
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == ' ' || r == '-' || r == '+' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return hasDigit
}

// maskNumeric stars every digit except the last four; separators are
// dropped so the token leaks nothing about grouping.
func maskNumeric(value string) string {
	digits := digitsOf(value)
	if len(digits) <= 4 {
		return strings.Repeat("*", len(digits))
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}
