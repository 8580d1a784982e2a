package models

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesExhausted(t *testing.T) {
	tests := []struct {
		value     int64
		exhausted bool
	}{
		{1, false},
		{0, true},
		{-1, true},
	}
	for _, tt := range tests {
		b := NewBytes(tt.value)
		assert.Equal(t, tt.exhausted, b.Exhausted(), "value %d", tt.value)
	}
}

func TestBytesBeyondInt64(t *testing.T) {
	// 40-digit counters must survive the round trip through their SQL text
	// form without truncation.
	huge, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.True(t, ok)

	b := NewBytesFromBig(huge)
	v, err := b.Value()
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678901234567890", v)

	var scanned Bytes
	require.NoError(t, scanned.Scan(v))
	assert.Zero(t, scanned.Cmp(huge))
}

func TestBytesScan(t *testing.T) {
	var b Bytes

	require.NoError(t, b.Scan(nil))
	assert.Equal(t, int64(0), b.Int64())

	require.NoError(t, b.Scan(int64(-42)))
	assert.Equal(t, int64(-42), b.Int64())

	require.NoError(t, b.Scan([]byte("1099511627776")))
	assert.Equal(t, int64(1<<40), b.Int64())

	require.NoError(t, b.Scan(""))
	assert.Equal(t, int64(0), b.Int64())

	assert.Error(t, b.Scan("not-a-number"))
	assert.Error(t, b.Scan(3.14))
}

func TestCounterTotal(t *testing.T) {
	assert.Equal(t, int64(1000), CounterTotal(1000, 0).Int64())
	assert.Equal(t, int64(1)<<32+1000, CounterTotal(1000, 1).Int64())
	assert.Equal(t, int64(3)<<32, CounterTotal(0, 3).Int64())
}

func TestNormalizeMAC(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"aa:bb:cc:dd:ee:ff", "AABBCCDDEEFF"},
		{"AA-BB-CC-DD-EE-FF", "AABBCCDDEEFF"},
		{"aabbccddeeff", "AABBCCDDEEFF"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeMAC(tt.in))
	}
}
