package cache

import (
	"fmt"
	"strconv"
)

// ForecastPrefix namespaces cached forecast responses.
const ForecastPrefix = "forecast:"

// forecastPrecision is the number of decimals kept in forecast keys. Four
// decimals is roughly 11 metres, so requests for the same farm share a key.
const forecastPrecision = 4

// ForecastKey generates a cache key for a weather forecast at a point.
//
// Example: "forecast:-0.3031,36.0800"
func ForecastKey(lat, lon float64) string {
	return fmt.Sprintf("%s%s,%s", ForecastPrefix,
		strconv.FormatFloat(lat, 'f', forecastPrecision, 64),
		strconv.FormatFloat(lon, 'f', forecastPrecision, 64))
}
