package models

import "time"

// Coordinates is a WGS84 point in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether c is a usable, non-zero coordinate pair.
func (c Coordinates) Valid() bool {
	if c.Lat == 0 && c.Lon == 0 {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Location is where a listing's produce can be collected.
type Location struct {
	County  string  `json:"county,omitempty"`
	Address string  `json:"address,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lon     float64 `json:"lon,omitempty"`
}

// Coordinates returns the location's point.
func (l Location) Coordinates() Coordinates {
	return Coordinates{Lat: l.Lat, Lon: l.Lon}
}

// Listing is a marketplace sell offer in canonical form. It is rebuilt
// from raw stored fields on every fetch and never written back.
type Listing struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	CropType     string     `json:"cropType,omitempty"`
	Quantity     float64    `json:"quantity,omitempty"`
	Unit         string     `json:"unit,omitempty"`
	PricePerUnit float64    `json:"pricePerUnit,omitempty"`
	Currency     string     `json:"currency,omitempty"`
	PhoneNumber  string     `json:"phoneNumber,omitempty"`
	Location     *Location  `json:"location,omitempty"`
	Images       []string   `json:"images,omitempty"`
	SellerID     string     `json:"sellerId,omitempty"`
	Status       string     `json:"status,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

// ListingMatch is a listing with its ranking score for one request.
type ListingMatch struct {
	Listing Listing `json:"listing"`
	Score   float64 `json:"score"`
}

// Farm is a caller-owned farm used for proximity ranking and forecasts.
type Farm struct {
	ID      string  `json:"id"`
	Name    string  `json:"name,omitempty"`
	OwnerID string  `json:"ownerId,omitempty"`
	County  string  `json:"county,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lon     float64 `json:"lon,omitempty"`
}

// Coordinates returns the farm's point.
func (f Farm) Coordinates() Coordinates {
	return Coordinates{Lat: f.Lat, Lon: f.Lon}
}

// Route is a logistics route record: the indicative cost of moving a crop
// between two places.
type Route struct {
	ID           string     `json:"id" db:"id"`
	Crop         string     `json:"crop" db:"crop"`
	Origin       string     `json:"origin" db:"origin"`
	Destination  string     `json:"destination" db:"destination"`
	DistanceKm   float64    `json:"distanceKm" db:"distance_km"`
	CostPerKg    float64    `json:"costPerKg" db:"cost_per_kg"`
	Currency     string     `json:"currency" db:"currency"`
	TransitHours float64    `json:"transitHours" db:"transit_hours"`
	Carrier      string     `json:"carrier,omitempty" db:"carrier"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty" db:"updated_at"`
}
