package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStateJSON(t *testing.T) {
	t.Run("no pending action is null", func(t *testing.T) {
		data, err := json.Marshal(DefaultSessionState())
		require.NoError(t, err)
		assert.JSONEq(t, `{"language":"en","stage":"chat","pendingAction":null,"profileDraft":{}}`, string(data))
	})

	t.Run("round trips pending checkout", func(t *testing.T) {
		state := SessionState{
			Language:      LanguageSwahili,
			Stage:         StageConfirmCheckout,
			LastIntent:    IntentOrders,
			PendingAction: PendingCheckout,
			ProfileDraft:  Profile{FullName: "Achieng", Phone: "0712345678"},
		}
		data, err := json.Marshal(state)
		require.NoError(t, err)

		var decoded SessionState
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, state, decoded)
	})

	t.Run("normalize repairs unknown stage", func(t *testing.T) {
		state := SessionState{Stage: "weird"}.Normalize()
		assert.Equal(t, StageChat, state.Stage)
		assert.Equal(t, LanguageEnglish, state.Language)
	})
}

func TestProfileMissing(t *testing.T) {
	assert.Equal(t, []string{"name", "phone", "county", "ward", "address"}, Profile{}.Missing())
	assert.Equal(t, []string{"name", "ward"}, Profile{Phone: "0712", County: "Kisumu", Address: "Box 1"}.Missing())
	assert.True(t, Profile{FullName: "a", Phone: "b", County: "c", Ward: "d", Address: "e"}.Complete())

	merged := Profile{Phone: "0712"}.Merge(Profile{Phone: "0799", County: "Kisumu"})
	assert.Equal(t, Profile{Phone: "0712", County: "Kisumu"}, merged)
}

func TestCoordinatesValid(t *testing.T) {
	assert.False(t, Coordinates{}.Valid())
	assert.False(t, Coordinates{Lat: 91, Lon: 10}.Valid())
	assert.True(t, Coordinates{Lat: -1.2921, Lon: 36.8219}.Valid())
	assert.True(t, Coordinates{Lat: 0, Lon: 36.8}.Valid())
}
