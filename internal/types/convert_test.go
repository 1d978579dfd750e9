package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToInt64(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected int64
	}{
		{name: "int64", input: int64(42), expected: 42},
		{name: "int", input: int(100), expected: 100},
		{name: "uint32", input: uint32(2000), expected: 2000},
		{name: "uint8", input: uint8(255), expected: 255},
		{name: "float64 truncates", input: float64(42.9), expected: 42},
		{name: "negative int8", input: int8(-128), expected: -128},
		{name: "decimal string", input: "17", expected: 17},
		{name: "padded string", input: " 8 ", expected: 8},
		{name: "byte slice", input: []byte("305"), expected: 305},
		{name: "float string", input: "3.7", expected: 3},
		{name: "non numeric string", input: "abc", expected: 0},
		{name: "nil", input: nil, expected: 0},
		{name: "bool", input: true, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToInt64(tt.input))
		})
	}
}

func TestToString(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    interface{}
		expected string
	}{
		{name: "nil", input: nil, expected: ""},
		{name: "string", input: "ISL", expected: "ISL"},
		{name: "bytes", input: []byte("jo"), expected: "jo"},
		{name: "int", input: 7, expected: "7"},
		{name: "int64", input: int64(-3), expected: "-3"},
		{name: "uint16", input: uint16(12), expected: "12"},
		{name: "float64", input: 1.5, expected: "1.5"},
		{name: "whole float64", input: float64(4), expected: "4"},
		{name: "bool", input: false, expected: "false"},
		{name: "time", input: ts, expected: "2024-03-01T10:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToString(tt.input))
		})
	}
}

func TestNullableString(t *testing.T) {
	assert.Nil(t, NullableString(nil))
	assert.Nil(t, NullableString("   "))
	assert.Nil(t, NullableString([]byte("")))

	got := NullableString("  caption ")
	require.NotNil(t, got)
	assert.Equal(t, "caption", *got)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "", Truncate("abc", 0))
	assert.Equal(t, "éé", Truncate("ééé", 2), "truncation counts runes, not bytes")
}
