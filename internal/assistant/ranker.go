package assistant

import (
	"math"
	"sort"
	"strings"

	"github.com/mkulima/asha/internal/models"
)

const (
	earthRadiusKm = 6371.0

	keywordScore   = 50.0
	proximityRange = 30.0 // km within which proximity adds to the score
	freshnessScore = 5.0
)

// Rank scores listings and returns them sorted by score, highest first.
// Listings with equal scores keep their input order.
//
// Scoring:
//   - +50 when keyword appears in the title or crop type (case-insensitive)
//   - +max(0, 30 - distanceKm) when farm and the listing both have valid coordinates
//   - +5 when the listing has an updatedAt timestamp, regardless of age
//
// Example:
//
//	matches := assistant.Rank(listings, "tomato", &models.Coordinates{Lat: -0.3031, Lon: 36.08})
//	best := matches[0].Listing
func Rank(listings []models.Listing, keyword string, farm *models.Coordinates) []models.ListingMatch {
	keyword = strings.ToLower(strings.TrimSpace(keyword))

	matches := make([]models.ListingMatch, len(listings))
	for i, listing := range listings {
		matches[i] = models.ListingMatch{Listing: listing, Score: score(listing, keyword, farm)}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

func score(listing models.Listing, keyword string, farm *models.Coordinates) float64 {
	var total float64

	if keyword != "" && matchesKeyword(listing, keyword) {
		total += keywordScore
	}

	if farm != nil && farm.Valid() && listing.Location != nil {
		if point := listing.Location.Coordinates(); point.Valid() {
			total += math.Max(0, proximityRange-Haversine(*farm, point))
		}
	}

	if listing.UpdatedAt != nil {
		total += freshnessScore
	}
	return total
}

func matchesKeyword(listing models.Listing, keyword string) bool {
	return strings.Contains(strings.ToLower(listing.Title), keyword) ||
		strings.Contains(strings.ToLower(listing.CropType), keyword)
}

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b models.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
