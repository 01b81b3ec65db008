// Package testutil provides fixtures and helpers shared by the HTTP,
// middleware and storage tests.
package testutil

import "github.com/mkulima/asha/internal/models"

// TestUID is the caller used by handler and middleware tests.
const TestUID = "uid-test-123"

// TestRoute returns a maize route from Eldoret to Nairobi.
func TestRoute() models.Route {
	return models.Route{
		ID:           "route-1",
		Crop:         "maize",
		Origin:       "Eldoret",
		Destination:  "Nairobi",
		DistanceKm:   312,
		CostPerKg:    4.5,
		Currency:     "KES",
		TransitHours: 6,
		Carrier:      "Rift Haulers",
	}
}

// UserAgents provides common user agent strings for testing
var UserAgents = struct {
	Chrome       string
	MobileChrome string
	MobileSafari string
	Unknown      string
}{
	Chrome:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	MobileChrome: "Mozilla/5.0 (Linux; Android 13) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.144 Mobile Safari/537.36",
	MobileSafari: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
	Unknown:      "",
}

// IPAddresses provides test IP addresses
var IPAddresses = struct {
	Public  string
	Private string
}{
	Public:  "203.0.113.42",
	Private: "192.168.1.100",
}
