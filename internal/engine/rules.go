package engine

import (
	"regexp"
	"strings"

	"github.com/cloakd/cloakd/internal/dictionary"
)

// Compiled patterns for the structured identifier detectors. All patterns
// are RE2-safe: no backtracking, so adversarial input cannot blow up scan
// time. Allocation rules regexps cannot express live in checksum.go.
var (
	reEmail = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

	rePhone = regexp.MustCompile(`(?:\+\d{1,3}[\s-]?)?\(?\d{2,5}\)?[\s-]?\d{3,4}[\s-]?\d{3,4}`)

	reCard = regexp.MustCompile(`(?:\d[ -]?){12,18}\d`)

	reNI = regexp.MustCompile(`\b[A-Z]{2}\s?\d{2}\s?\d{2}\s?\d{2}\s?[A-D]\b`)

	reNHS = regexp.MustCompile(`\b\d{3}[\s-]?\d{3}[\s-]?\d{4}\b`)

	rePostcode = regexp.MustCompile(`\b[A-Z]{1,2}\d[A-Z\d]?\s?\d[A-Z]{2}\b`)

	reDOB = regexp.MustCompile(`\b(?:\d{1,2}[/-]\d{1,2}[/-](?:19|20)\d{2}|(?:19|20)\d{2}-\d{2}-\d{2})\b`)

	reAddress = regexp.MustCompile(`\b\d{1,4}\s+[A-Z][A-Za-z]+(?:\s+[A-Z][A-Za-z]+)?\s+(?:Street|St|Road|Rd|Avenue|Ave|Lane|Ln|Close|Drive|Dr|Way|Court|Place|Gardens|Terrace|Square)\b`)

	reURL = regexp.MustCompile(`https?://[^\s<>"'\]]+`)

	reIP = regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}\b`)

	rePassport = regexp.MustCompile(`\b\d{9}\b`)

	reIBAN = regexp.MustCompile(`\b[A-Z]{2}\d{2}(?:\s?[A-Z0-9]{4}){2,7}(?:\s?[A-Z0-9]{1,3})?\b`)

	reSortCode = regexp.MustCompile(`\b\d{2}-\d{2}-\d{2}\b`)
)

// ukLocales are the locale values that activate the UK-specific detectors.
var ukLocales = map[string]bool{"UK": true, "GB": true, "EN-GB": true}

// phoneValid keeps the phone pattern honest: only dialling characters,
// 9 to 15 digits, and either an international prefix or a national leading
// zero. Plain figures in prose never qualify.
func phoneValid(value string) bool {
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '+':
		default:
			return false
		}
	}
	digits := digitsOf(value)
	if len(digits) < 9 || len(digits) > 15 {
		return false
	}
	return strings.HasPrefix(strings.TrimSpace(value), "+") || digits[0] == '0'
}

// cardValid accepts 13-19 digit values, separators allowed, that pass Luhn.
func cardValid(value string) bool {
	for _, r := range value {
		if (r < '0' || r > '9') && r != ' ' && r != '-' {
			return false
		}
	}
	digits := digitsOf(value)
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	return luhnValid(digits)
}

// dobValid bounds day and month components; the patterns only guarantee
// digit group widths.
func dobValid(value string) bool {
	var day, month int
	if strings.Contains(value, "/") || (len(value) > 4 && value[4] != '-') {
		sep := "/"
		if !strings.Contains(value, "/") {
			sep = "-"
		}
		parts := strings.Split(value, sep)
		if len(parts) != 3 {
			return false
		}
		day = atoiSafe(parts[0])
		month = atoiSafe(parts[1])
	} else {
		parts := strings.Split(value, "-")
		if len(parts) != 3 {
			return false
		}
		month = atoiSafe(parts[1])
		day = atoiSafe(parts[2])
	}
	return day >= 1 && day <= 31 && month >= 1 && month <= 12
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// buildDetectors assembles the detector set for a validated configuration
// in registration order. Disabled entity types get no detector at all, so
// they cost nothing at scan time. Region-specific detectors (NI, NHS,
// POSTCODE, SORT_CODE_UK) are only built for UK locales.
func buildDetectors(cfg *Config, dict *dictionary.Dictionary) []Detector {
	uk := ukLocales[strings.ToUpper(cfg.Locale)]

	conf := func(et EntityType) float64 { return cfg.Entities[et].Confidence }

	all := []Detector{
		&personDetector{dict: dict, confidence: conf(EntityPerson)},
		&singleNameDetector{dict: dict, confidence: conf(EntitySingleName)},
		&orgDetector{dict: dict, confidence: conf(EntityOrg)},
		&patternDetector{
			entity: EntityEmail, name: "email_pattern",
			re: reEmail, confidence: conf(EntityEmail),
		},
		&patternDetector{
			entity: EntityPhone, name: "phone_pattern",
			re: rePhone, confidence: conf(EntityPhone), validate: phoneValid,
		},
		&patternDetector{
			entity: EntityCard, name: "card_luhn",
			re: reCard, confidence: conf(EntityCard), validate: cardValid,
		},
		&patternDetector{
			entity: EntityNI, name: "ni_pattern",
			re: reNI, confidence: conf(EntityNI), validate: niValid,
		},
		&patternDetector{
			entity: EntityNHS, name: "nhs_mod11",
			re: reNHS, confidence: conf(EntityNHS), validate: nhsValid,
		},
		&patternDetector{
			entity: EntityPostcode, name: "postcode_pattern",
			re: rePostcode, confidence: conf(EntityPostcode),
		},
		&patternDetector{
			entity: EntityDOB, name: "dob_pattern",
			re: reDOB, confidence: conf(EntityDOB), validate: dobValid,
			contextWords: []string{"birth", "born", "dob"},
		},
		&patternDetector{
			entity: EntityAddress, name: "address_pattern",
			re: reAddress, confidence: conf(EntityAddress),
		},
		&patternDetector{
			entity: EntityURL, name: "url_pattern",
			re: reURL, confidence: conf(EntityURL),
		},
		&patternDetector{
			entity: EntityIP, name: "ipv4_pattern",
			re: reIP, confidence: conf(EntityIP), validate: ipv4Valid,
		},
		&patternDetector{
			entity: EntityPassport, name: "passport_context",
			re: rePassport, confidence: conf(EntityPassport),
			contextWords: []string{"passport"}, requireContext: true,
		},
		&patternDetector{
			entity: EntityIBAN, name: "iban_mod97",
			re: reIBAN, confidence: conf(EntityIBAN), validate: ibanValid,
		},
		&patternDetector{
			entity: EntitySortCode, name: "sort_code_pattern",
			re: reSortCode, confidence: conf(EntitySortCode),
			contextWords: []string{"sort code", "sort-code"},
		},
	}

	ukOnly := map[EntityType]bool{
		EntityNI:       true,
		EntityNHS:      true,
		EntityPostcode: true,
		EntitySortCode: true,
	}

	detectors := make([]Detector, 0, len(all))
	for _, d := range all {
		if !cfg.Entities[d.Type()].Enabled {
			continue
		}
		if ukOnly[d.Type()] && !uk {
			continue
		}
		detectors = append(detectors, d)
	}
	return detectors
}
