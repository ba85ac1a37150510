package engine

import "strings"

// stripSeparators removes spaces and hyphens, the separators people put
// inside card numbers, IBANs and phone numbers.
func stripSeparators(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == ' ' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func digitsOf(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// luhnValid checks a digit string against the Luhn algorithm (ISO/IEC 7812).
func luhnValid(number string) bool {
	if len(number) < 2 {
		return false
	}
	sum := 0
	alt := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if alt {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		alt = !alt
	}
	return sum%10 == 0
}

// ibanLengths maps ISO 3166 country codes to the IBAN length registered
// for that country (ISO 13616).
var ibanLengths = map[string]int{
	"AD": 24, "AE": 23, "AT": 20, "BE": 16, "BG": 22, "CH": 21,
	"CY": 28, "CZ": 24, "DE": 22, "DK": 18, "EE": 20, "ES": 24,
	"FI": 18, "FR": 27, "GB": 22, "GI": 23, "GR": 27, "HR": 21,
	"HU": 28, "IE": 22, "IS": 26, "IT": 27, "LI": 21, "LT": 20,
	"LU": 20, "LV": 21, "MC": 27, "MT": 31, "NL": 18, "NO": 15,
	"PL": 28, "PT": 25, "RO": 24, "SE": 24, "SI": 19, "SK": 24,
}

// ibanValid verifies country length and the MOD-97 check digits per
// ISO 13616: the first four characters are moved to the end, letters are
// expanded to digits (A=10..Z=35) and the whole number mod 97 must be 1.
func ibanValid(raw string) bool {
	iban := strings.ToUpper(stripSeparators(raw))
	if len(iban) < 5 {
		return false
	}
	expected, ok := ibanLengths[iban[:2]]
	if !ok || len(iban) != expected {
		return false
	}

	rearranged := iban[4:] + iban[:4]
	rem := 0
	for _, ch := range rearranged {
		switch {
		case ch >= '0' && ch <= '9':
			rem = (rem*10 + int(ch-'0')) % 97
		case ch >= 'A' && ch <= 'Z':
			v := int(ch-'A') + 10
			rem = (rem*100 + v) % 97
		default:
			return false
		}
	}
	return rem == 1
}

// nhsValid verifies the 10-digit NHS number check digit: the first nine
// digits are weighted 10 down to 2, and 11 minus the sum mod 11 must equal
// the tenth digit (11 maps to 0, 10 means the number is invalid).
func nhsValid(raw string) bool {
	digits := digitsOf(raw)
	if len(digits) != 10 {
		return false
	}
	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(digits[i]-'0') * (10 - i)
	}
	check := 11 - sum%11
	if check == 11 {
		check = 0
	}
	if check == 10 {
		return false
	}
	return check == int(digits[9]-'0')
}

// niInvalidPrefixes are two-letter prefixes never allocated for UK
// National Insurance numbers.
var niInvalidPrefixes = map[string]bool{
	"BG": true, "GB": true, "NK": true, "KN": true,
	"TN": true, "NT": true, "ZZ": true,
}

// niValid applies the allocation rules Go's regexp cannot express as
// lookaheads: D, F, I, Q, U, V never appear in the prefix, O never as the
// second letter, and a handful of prefixes are reserved.
func niValid(raw string) bool {
	ni := strings.ToUpper(stripSeparators(raw))
	if len(ni) != 9 {
		return false
	}
	prefix := ni[:2]
	if niInvalidPrefixes[prefix] {
		return false
	}
	for i, ch := range prefix {
		if ch < 'A' || ch > 'Z' {
			return false
		}
		if strings.ContainsRune("DFIQUV", ch) {
			return false
		}
		if i == 1 && ch == 'O' {
			return false
		}
	}
	return true
}

// ipv4Valid checks that every dotted octet is in range. The pattern only
// guarantees 1-3 digit groups.
func ipv4Valid(raw string) bool {
	parts := strings.Split(raw, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if len(p) == 0 || len(p) > 3 {
			return false
		}
		n := 0
		for _, r := range p {
			if r < '0' || r > '9' {
				return false
			}
			n = n*10 + int(r-'0')
		}
		if n > 255 {
			return false
		}
		if len(p) > 1 && p[0] == '0' {
			return false
		}
	}
	return true
}
