package fallback

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveDefaultsToCentralBucket(t *testing.T) {
	table := NewTable("central", nil)

	id, ok := table.Resolve("Granada")
	assert.True(t, ok)
	assert.Equal(t, "central", id)

	id, ok = table.Resolve("  SEVILLA ")
	assert.True(t, ok)
	assert.Equal(t, "central", id)
}

func TestResolveOverride(t *testing.T) {
	table := NewTable("central", map[string]string{
		"Granada": "fr-granada-01",
		"Malaga":  "fr-malaga-01",
	})

	id, ok := table.Resolve("granada")
	assert.True(t, ok)
	assert.Equal(t, "fr-granada-01", id)

	// Non-overridden provinces keep the central bucket.
	id, ok = table.Resolve("Cuenca")
	assert.True(t, ok)
	assert.Equal(t, "central", id)
}

func TestResolveUnknownProvince(t *testing.T) {
	table := NewTable("central", nil)

	_, ok := table.Resolve("Unknownistan")
	assert.False(t, ok)

	_, ok = table.Resolve("")
	assert.False(t, ok)
}

func TestOverrideCanExtendCoverage(t *testing.T) {
	table := NewTable("central", map[string]string{
		"Gibraltar": "fr-gib-01", // not a Spanish province, config may still route it
	})

	id, ok := table.Resolve("gibraltar")
	assert.True(t, ok)
	assert.Equal(t, "fr-gib-01", id)
}

func TestEmptyOverridesIgnored(t *testing.T) {
	table := NewTable("central", map[string]string{
		"":        "fr-x",
		"Granada": "",
	})

	id, ok := table.Resolve("granada")
	assert.True(t, ok)
	assert.Equal(t, "central", id)
}

func TestCoversAllProvinces(t *testing.T) {
	table := NewTable("central", nil)
	assert.Equal(t, 52, table.Len())
}
