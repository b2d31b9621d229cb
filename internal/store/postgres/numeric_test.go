package postgres

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBigToNumeric(t *testing.T) {
	assert.Equal(t, "0", bigToNumeric(nil))
	assert.Equal(t, "0", bigToNumeric(big.NewInt(0)))
	assert.Equal(t, "-300", bigToNumeric(big.NewInt(-300)))

	wei, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.True(t, ok)
	assert.Equal(t, "123456789012345678901234567890", bigToNumeric(wei))
}

func TestNumericToBig(t *testing.T) {
	x, err := numericToBig("123456789012345678901234567890")
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678901234567890", x.String())

	x, err = numericToBig("-42")
	require.NoError(t, err)
	assert.Equal(t, int64(-42), x.Int64())

	_, err = numericToBig("12.5")
	assert.Error(t, err)
	_, err = numericToBig("")
	assert.Error(t, err)
}
