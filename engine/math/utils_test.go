package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, uint32(4), Clamp[uint32](1, 4, 16))
	assert.Equal(t, uint32(16), Clamp[uint32](64, 4, 16))
	assert.Equal(t, uint32(8), Clamp[uint32](8, 4, 16))
	assert.Equal(t, 0.5, Clamp(0.5, 0.0, 1.0))
	assert.Equal(t, -1, Clamp(-3, -1, 1))
}
