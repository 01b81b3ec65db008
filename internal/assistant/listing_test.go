package assistant

import (
	"testing"
	"time"

	"github.com/mkulima/asha/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeListing(t *testing.T) {
	t.Run("canonical fields", func(t *testing.T) {
		created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
		listing := NormalizeListing("lst_1", map[string]any{
			"title":        "Fresh tomatoes",
			"cropType":     "tomato",
			"quantity":     int64(200),
			"unit":         "kg",
			"pricePerUnit": 120.0,
			"currency":     "KES",
			"status":       "active",
			"images":       []any{"a.jpg", "", "b.jpg"},
			"location":     map[string]any{"county": "Nakuru", "lat": -0.3031, "lng": 36.08},
			"createdAt":    created,
		})

		assert.Equal(t, "lst_1", listing.ID)
		assert.Equal(t, "Fresh tomatoes", listing.Title)
		assert.Equal(t, 200.0, listing.Quantity)
		assert.Equal(t, 120.0, listing.PricePerUnit)
		assert.Equal(t, []string{"a.jpg", "b.jpg"}, listing.Images)
		require.NotNil(t, listing.Location)
		assert.Equal(t, models.Location{County: "Nakuru", Lat: -0.3031, Lon: 36.08}, *listing.Location)
		require.NotNil(t, listing.CreatedAt)
		assert.True(t, created.Equal(*listing.CreatedAt))
		assert.Nil(t, listing.UpdatedAt)
	})

	t.Run("legacy aliases and defaults", func(t *testing.T) {
		listing := NormalizeListing("lst_2", map[string]any{
			"crop":      "maize",
			"price":     "45.5",
			"phone":     "0712345678",
			"userId":    "farmer-9",
			"county":    "Trans Nzoia",
			"location":  "Kitale town",
			"updatedAt": "2026-02-03T10:00:00Z",
		})

		assert.Equal(t, "maize", listing.Title)
		assert.Equal(t, "maize", listing.CropType)
		assert.Equal(t, 45.5, listing.PricePerUnit)
		assert.Equal(t, "KES", listing.Currency)
		assert.Equal(t, "active", listing.Status)
		assert.Equal(t, "0712345678", listing.PhoneNumber)
		assert.Equal(t, "farmer-9", listing.SellerID)
		require.NotNil(t, listing.Location)
		assert.Equal(t, "Trans Nzoia", listing.Location.County)
		assert.Equal(t, "Kitale town", listing.Location.Address)
		require.NotNil(t, listing.UpdatedAt)
	})

	t.Run("no location fields", func(t *testing.T) {
		listing := NormalizeListing("lst_3", map[string]any{"title": "Eggs"})
		assert.Nil(t, listing.Location)
	})
}

func TestNormalizeFarmAndProfile(t *testing.T) {
	farm := normalizeFarm("farm_1", map[string]any{
		"farmName": "Shamba A",
		"userId":   "user-1",
		"location": map[string]any{"latitude": -0.3031, "longitude": 36.08, "county": "Nakuru"},
	})
	assert.Equal(t, models.Farm{ID: "farm_1", Name: "Shamba A", OwnerID: "user-1", County: "Nakuru", Lat: -0.3031, Lon: 36.08}, farm)

	profile := normalizeProfile(map[string]any{
		"displayName": "Achieng Otieno",
		"phoneNumber": "0712345678",
		"county":      "Kisumu",
		"ward":        "Kondele",
		"address":     "Plot 12",
	})
	assert.True(t, profile.Complete())
	assert.Equal(t, "Achieng Otieno", profile.FullName)
}
