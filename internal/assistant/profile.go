package assistant

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mkulima/asha/internal/models"
)

type profileField int

const (
	fieldName profileField = iota
	fieldCounty
	fieldWard
	fieldAddress
	fieldPhoneLabel
)

type fieldRule struct {
	pattern *regexp.Regexp
	field   profileField
	// capitalised requires the captured value to start with an upper-case
	// letter in the original message ("I am Achieng" but not "I am in Nakuru").
	capitalised bool
}

// labelRules mark where a labelled value starts. A value runs from the end
// of its label to the start of the next label or the end of the message.
var labelRules = []fieldRule{
	{pattern: regexp.MustCompile(`(?i)\b(?:my name is|my full name is|jina langu ni|naitwa)\s*:?\s*`), field: fieldName},
	{pattern: regexp.MustCompile(`\b(?:I am|I'm|i am|i'm|Mimi ni|mimi ni)\s+`), field: fieldName, capitalised: true},
	{pattern: regexp.MustCompile(`(?i)\b(?:full name|name|jina)\s*(?:is|ni|:|=|-)\s*`), field: fieldName},
	{pattern: regexp.MustCompile(`(?i)\b(?:county|kaunti)\s*(?:is|ni|:|=|-)\s*`), field: fieldCounty},
	{pattern: regexp.MustCompile(`(?i)\b(?:ward|wadi)\s*(?:is|ni|:|=|-)\s*`), field: fieldWard},
	{pattern: regexp.MustCompile(`(?i)\b(?:delivery address|address|anwani|location)\s*(?:is|ni|:|=|-)\s*`), field: fieldAddress},
	{pattern: regexp.MustCompile(`(?i)\b(?:phone number|phone|mobile|simu|nambari ya simu)\s*(?:is|ni|:|=|-)?\s*`), field: fieldPhoneLabel},
}

var (
	phonePattern   = regexp.MustCompile(`(?:\+?254|0)[\s-]?[17]\d{2}[\s-]?\d{3}[\s-]?\d{3}\b`)
	countySuffix   = regexp.MustCompile(`(?i)\b([a-z][a-z'-]+(?:\s+[a-z][a-z'-]+)?)\s+county\b`)
	wardSuffix     = regexp.MustCompile(`(?i)\b([a-z][a-z'-]+(?:\s+[a-z][a-z'-]+)?)\s+ward\b`)
	shortValueStop = regexp.MustCompile(`(?i)[,.;!?\n]|\s+(?:and|na)\s+|\d`)
	longValueStop  = regexp.MustCompile(`[;\n]`)
)

type labelMatch struct {
	rule       fieldRule
	start, end int
}

// ExtractProfile pulls checkout fields out of free text. Fields that are
// not recognised are left empty.
//
// Recognised forms:
//   - phone: any Kenyan mobile number (07xx, 01xx, +254...)
//   - name: "my name is ...", "I am ...", "name: ..."
//   - county and ward: "county: ...", "ward is ...", "Kisumu county", "Kondele ward"
//   - address: "address: ..." (free text to the end of the sentence)
//
// Example:
//
//	p := assistant.ExtractProfile("My name is Achieng Otieno, phone 0712 345 678")
//	// p.FullName == "Achieng Otieno", p.Phone == "0712345678"
func ExtractProfile(message string) models.Profile {
	var profile models.Profile

	if phone := phonePattern.FindString(message); phone != "" {
		profile.Phone = normalizePhone(phone)
	}

	labels := findLabels(message)
	for i, label := range labels {
		end := len(message)
		if i+1 < len(labels) {
			end = labels[i+1].start
		}
		raw := message[label.end:end]

		switch label.rule.field {
		case fieldName:
			if label.rule.capitalised && !startsUpper(raw) {
				continue
			}
			setOnce(&profile.FullName, shortValue(raw, 4))
		case fieldCounty:
			setOnce(&profile.County, shortValue(raw, 3))
		case fieldWard:
			setOnce(&profile.Ward, shortValue(raw, 3))
		case fieldAddress:
			setOnce(&profile.Address, longValue(raw))
		}
	}

	if profile.County == "" {
		if m := countySuffix.FindStringSubmatch(message); m != nil {
			profile.County = stripFillers(m[1])
		}
	}
	if profile.Ward == "" {
		if m := wardSuffix.FindStringSubmatch(message); m != nil {
			profile.Ward = stripFillers(m[1])
		}
	}
	return profile
}

func findLabels(message string) []labelMatch {
	var labels []labelMatch
	for _, rule := range labelRules {
		for _, loc := range rule.pattern.FindAllStringIndex(message, -1) {
			if overlaps(labels, loc[0], loc[1]) {
				continue
			}
			labels = append(labels, labelMatch{rule: rule, start: loc[0], end: loc[1]})
		}
	}
	// Insertion sort by position; there are only a handful of labels.
	for i := 1; i < len(labels); i++ {
		for j := i; j > 0 && labels[j].start < labels[j-1].start; j-- {
			labels[j], labels[j-1] = labels[j-1], labels[j]
		}
	}
	return labels
}

func overlaps(labels []labelMatch, start, end int) bool {
	for _, l := range labels {
		if start < l.end && end > l.start {
			return true
		}
	}
	return false
}

// shortValue trims a name-like value at the first separator and keeps at
// most maxWords words.
func shortValue(raw string, maxWords int) string {
	if loc := shortValueStop.FindStringIndex(raw); loc != nil {
		raw = raw[:loc[0]]
	}
	words := strings.Fields(raw)
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	value := strings.Join(words, " ")
	if isFiller(value) {
		return ""
	}
	return value
}

func longValue(raw string) string {
	if loc := longValueStop.FindStringIndex(raw); loc != nil {
		raw = raw[:loc[0]]
	}
	return strings.Trim(strings.TrimSpace(raw), ",.")
}

func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func startsUpper(s string) bool {
	s = strings.TrimSpace(s)
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

func setOnce(dst *string, value string) {
	if *dst == "" && value != "" {
		*dst = value
	}
}

var fillerWords = map[string]bool{
	"my": true, "the": true, "in": true, "a": true, "is": true, "from": true, "at": true, "ni": true,
}

// stripFillers drops leading filler words ("in Kisumu" becomes "Kisumu").
func stripFillers(s string) string {
	words := strings.Fields(s)
	for len(words) > 0 && isFiller(words[0]) {
		words = words[1:]
	}
	return strings.Join(words, " ")
}

func isFiller(s string) bool {
	return s == "" || fillerWords[strings.ToLower(s)]
}

// fieldLabels names the checkout fields when asking the caller for them.
var fieldLabels = map[models.Language]map[string]string{
	models.LanguageEnglish: {
		"name":    "full name",
		"phone":   "phone number",
		"county":  "county",
		"ward":    "ward",
		"address": "delivery address",
	},
	models.LanguageSwahili: {
		"name":    "jina kamili",
		"phone":   "nambari ya simu",
		"county":  "kaunti",
		"ward":    "wadi",
		"address": "anwani ya kupelekea",
	},
}

func describeFields(language models.Language, fields []string) string {
	labels := fieldLabels[language]
	if labels == nil {
		labels = fieldLabels[models.LanguageEnglish]
	}
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = labels[f]
	}
	joiner := " and "
	if language == models.LanguageSwahili {
		joiner = " na "
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + joiner + names[len(names)-1]
	}
}
