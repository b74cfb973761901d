package players

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micro-nova/amplipi-hub/internal/amplipi"
)

func TestExtractSourceID(t *testing.T) {
	id, err := ExtractSourceID("Source 3")
	require.NoError(t, err)
	assert.Equal(t, 2, id)

	id, err = ExtractSourceID("Source 1")
	require.NoError(t, err)
	assert.Equal(t, 0, id)

	_, err = ExtractSourceID("No Source Here")
	assert.Error(t, err)
}

func TestExtractStreamID(t *testing.T) {
	tests := []struct {
		label  string
		want   int
		wantOK bool
	}{
		{"AmpliPi Stream 1001: Groove Salad", 1001, true},
		{"AmpliPi Stream 996: Input 1", 996, true},
		{"AmpliPi Stream 1002: Matt's Pandora", 1002, true},
		{"Groove Salad", 0, false},
		{"Stream 5", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		id, ok := ExtractStreamID(tt.label)
		assert.Equal(t, tt.wantOK, ok, "label %q", tt.label)
		if tt.wantOK {
			assert.Equal(t, tt.want, id, "label %q", tt.label)
		}
	}
}

func TestStreamIDSurvivesNormalization(t *testing.T) {
	streams := NormalizeStreamNames([]amplipi.Stream{
		{ID: 1001, Name: "Groove Salad"},
		{ID: 996, Name: "Input 1"},
	})
	for _, stream := range streams {
		id, ok := ExtractStreamID(stream.Name)
		require.True(t, ok, "name %q", stream.Name)
		assert.Equal(t, stream.ID, id)
	}
}

func TestNormalizeStreamNamesIdempotent(t *testing.T) {
	streams := []amplipi.Stream{
		{ID: 1001, Name: "Groove Salad"},
		{ID: 1002, Name: "Matt's Pandora"},
	}

	once := NormalizeStreamNames(streams)
	assert.Equal(t, "AmpliPi Stream 1001: Groove Salad", once[0].Name)
	assert.Equal(t, "AmpliPi Stream 1002: Matt's Pandora", once[1].Name)

	twice := NormalizeStreamNames(once)
	assert.Equal(t, once, twice)
}

func TestBuildImageURL(t *testing.T) {
	base := "http://amplipi.local"

	assert.Equal(t, "", BuildImageURL(base, ""))
	assert.Equal(t, "https://cdn.example.com/art.jpg", BuildImageURL(base, "https://cdn.example.com/art.jpg"))
	assert.Equal(t, "http://amplipi.local/static/imgs/radio.png", BuildImageURL(base, "static/imgs/radio.png"))
	assert.Equal(t, "", BuildImageURL("not a base", "art.jpg"))
	assert.Equal(t, "", BuildImageURL("", "art.jpg"))
}

func TestEntitySlug(t *testing.T) {
	assert.Equal(t, "back_patio", entitySlug("Back Patio"))
	assert.Equal(t, "zone_3_left", entitySlug("Zone-3 (Left)"))
	assert.Equal(t, "kitchen", entitySlug("Kitchen"))
	assert.Equal(t, "", entitySlug(""))
}
