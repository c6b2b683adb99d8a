package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubtotal(t *testing.T) {
	sub, err := Subtotal("1000.00", 2)
	require.NoError(t, err)
	assert.Equal(t, "2000.00", Format(sub))

	sub, err = Subtotal("19.99", 3)
	require.NoError(t, err)
	assert.Equal(t, "59.97", Format(sub))
}

func TestSubtotalInvalidPrice(t *testing.T) {
	_, err := Subtotal("not-a-number", 1)
	assert.Error(t, err)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("2500", "2500.00"))
	assert.True(t, Equal("0.1", "0.10"))
	assert.False(t, Equal("2500.00", "2400.00"))
	assert.False(t, Equal("abc", "2500"))
}
