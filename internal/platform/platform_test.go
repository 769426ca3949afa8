package platform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for _, p := range All() {
		parsed, err := Parse(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	}

	_, err := Parse("myspace")
	assert.Error(t, err)
	_, err = Parse("Facebook")
	assert.Error(t, err, "platform names are lowercase")
	_, err = Parse("")
	assert.Error(t, err)
}

func TestNewRegistryCoversAllPlatforms(t *testing.T) {
	reg := NewRegistry(time.Second)
	for _, p := range All() {
		assert.Contains(t, reg, p)
	}
}
