package assistant

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mkulima/asha/internal/models"
)

type crop struct {
	keyword string
	aliases []string
}

// cropVocabulary is checked in order; the first crop whose keyword or alias
// appears in the message is the turn's crop keyword.
var cropVocabulary = []crop{
	{keyword: "tomato", aliases: []string{"nyanya"}},
	{keyword: "maize", aliases: []string{"mahindi", "corn"}},
	{keyword: "bean", aliases: []string{"maharagwe"}},
	{keyword: "potato", aliases: []string{"viazi"}},
	{keyword: "cabbage", aliases: []string{"kabichi"}},
	{keyword: "onion", aliases: []string{"kitunguu", "vitunguu"}},
	{keyword: "kale", aliases: []string{"sukuma"}},
	{keyword: "spinach", aliases: []string{"spinachi"}},
	{keyword: "carrot", aliases: []string{"karoti"}},
	{keyword: "avocado", aliases: []string{"parachichi"}},
	{keyword: "mango", aliases: []string{"embe", "maembe"}},
	{keyword: "banana", aliases: []string{"ndizi"}},
	{keyword: "rice", aliases: []string{"mchele"}},
	{keyword: "wheat", aliases: []string{"ngano"}},
	{keyword: "sorghum", aliases: []string{"mtama"}},
	{keyword: "millet", aliases: []string{"wimbi"}},
	{keyword: "cassava", aliases: []string{"muhogo"}},
	{keyword: "coffee", aliases: []string{"kahawa"}},
	{keyword: "tea", aliases: []string{"chai"}},
	{keyword: "milk", aliases: []string{"maziwa"}},
	{keyword: "egg", aliases: []string{"mayai"}},
}

// cropPattern is the vocabulary as a regexp alternation.
var cropPattern = func() string {
	var words []string
	for _, c := range cropVocabulary {
		words = append(words, c.keyword)
		words = append(words, c.aliases...)
	}
	return strings.Join(words, "|")
}()

// cropMatchers match a crop word at a word start with an optional plural.
var cropMatchers = func() []*regexp.Regexp {
	matchers := make([]*regexp.Regexp, len(cropVocabulary))
	for i, c := range cropVocabulary {
		words := append([]string{c.keyword}, c.aliases...)
		matchers[i] = regexp.MustCompile(`\b(?:` + strings.Join(words, "|") + `)(?:es|s)?\b`)
	}
	return matchers
}()

// CropKeyword returns the first vocabulary crop mentioned in message, or ""
// when none is.
//
// Example:
//
//	assistant.CropKeyword("I want tomatoes") // "tomato"
//	assistant.CropKeyword("nataka nyanya")   // "tomato"
func CropKeyword(message string) string {
	text := strings.ToLower(message)
	for i, matcher := range cropMatchers {
		if matcher.MatchString(text) {
			return cropVocabulary[i].keyword
		}
	}
	return ""
}

// NormalizeListing flattens a raw listing document into the canonical
// shape. Several historical field names are accepted for most fields.
func NormalizeListing(id string, raw map[string]any) models.Listing {
	listing := models.Listing{
		ID:           id,
		Title:        firstString(raw, "title", "name", "cropName"),
		CropType:     firstString(raw, "cropType", "crop", "category"),
		Quantity:     firstNumber(raw, "quantity", "qty", "amount"),
		Unit:         firstString(raw, "unit", "units"),
		PricePerUnit: firstNumber(raw, "pricePerUnit", "price", "unitPrice"),
		Currency:     firstString(raw, "currency"),
		PhoneNumber:  firstString(raw, "phoneNumber", "phone", "contactPhone"),
		Location:     normalizeLocation(raw),
		Images:       firstStrings(raw, "images", "imageUrls", "photos"),
		SellerID:     firstString(raw, "sellerId", "userId", "ownerId", "farmerId"),
		Status:       firstString(raw, "status"),
		CreatedAt:    firstTime(raw, "createdAt"),
		UpdatedAt:    firstTime(raw, "updatedAt"),
	}
	if listing.Title == "" {
		listing.Title = listing.CropType
	}
	if listing.Currency == "" {
		listing.Currency = "KES"
	}
	if listing.Status == "" {
		listing.Status = "active"
	}
	return listing
}

func normalizeLocation(raw map[string]any) *models.Location {
	src := raw
	if nested, ok := raw["location"].(map[string]any); ok {
		src = nested
	}

	loc := models.Location{
		County:  firstString(src, "county"),
		Address: firstString(src, "address"),
		Lat:     firstNumber(src, "lat", "latitude"),
		Lon:     firstNumber(src, "lon", "lng", "longitude"),
	}
	if loc.County == "" {
		loc.County = firstString(raw, "county")
	}
	if loc.Address == "" {
		if s, ok := raw["location"].(string); ok {
			loc.Address = strings.TrimSpace(s)
		}
	}
	if loc == (models.Location{}) {
		return nil
	}
	return &loc
}

// normalizeFarm builds a Farm from a raw farm document.
func normalizeFarm(id string, raw map[string]any) models.Farm {
	src := raw
	if nested, ok := raw["location"].(map[string]any); ok {
		src = nested
	}
	farm := models.Farm{
		ID:      id,
		Name:    firstString(raw, "name", "farmName"),
		OwnerID: firstString(raw, "ownerId", "userId"),
		County:  firstString(raw, "county"),
		Lat:     firstNumber(src, "lat", "latitude"),
		Lon:     firstNumber(src, "lon", "lng", "longitude"),
	}
	if farm.County == "" {
		farm.County = firstString(src, "county")
	}
	return farm
}

// normalizeProfile builds a Profile from a raw user document.
func normalizeProfile(raw map[string]any) models.Profile {
	return models.Profile{
		FullName: firstString(raw, "fullName", "name", "displayName"),
		Phone:    firstString(raw, "phone", "phoneNumber"),
		County:   firstString(raw, "county"),
		Ward:     firstString(raw, "ward"),
		Address:  firstString(raw, "address", "location"),
	}
}

func firstString(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case int64:
			return strconv.FormatInt(v, 10)
		}
	}
	return ""
}

func firstNumber(raw map[string]any, keys ...string) float64 {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case float64:
			return v
		case int64:
			return float64(v)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func firstStrings(raw map[string]any, keys ...string) []string {
	for _, key := range keys {
		items, ok := raw[key].([]any)
		if !ok {
			continue
		}
		var out []string
		for _, item := range items {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func firstTime(raw map[string]any, keys ...string) *time.Time {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case time.Time:
			t := v
			return &t
		case string:
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				return &t
			}
		}
	}
	return nil
}
