package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestByNameKnownTiers(t *testing.T) {
	premium, ok := ByName("premium")
	assert.True(t, ok)
	assert.Equal(t, int64(30000), premium.Amount)
	assert.Equal(t, BAND_PREMIUM, premium.Band)

	standard, ok := ByName("standard")
	assert.True(t, ok)
	assert.Equal(t, int64(15000), standard.Amount)

	bare, ok := ByName("bare_minimum")
	assert.True(t, ok)
	assert.Equal(t, BAND_NONE, bare.Band)
}

func TestByNameUnknownTier(t *testing.T) {
	_, ok := ByName("platinum")
	assert.False(t, ok)
}

func TestByAmount(t *testing.T) {
	hof, ok := ByAmount(7500)
	assert.True(t, ok)
	assert.Equal(t, "hall_of_fame", hof.Name)

	_, ok = ByAmount(123)
	assert.False(t, ok)
}

func TestBandRange(t *testing.T) {
	lo, hi, ok := BandRange(BAND_PREMIUM)
	assert.True(t, ok)
	assert.Equal(t, 1, lo)
	assert.Equal(t, 1, hi)

	lo, hi, ok = BandRange(BAND_STANDARD)
	assert.True(t, ok)
	assert.Equal(t, 2, lo)
	assert.Equal(t, 11, hi)

	lo, hi, ok = BandRange(BAND_HALL_OF_FAME)
	assert.True(t, ok)
	assert.Equal(t, 12, lo)
	assert.Equal(t, 100, hi)

	_, _, ok = BandRange(BAND_NONE)
	assert.False(t, ok)
}
