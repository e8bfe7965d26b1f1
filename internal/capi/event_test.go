package capi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_AcceptsNumbersAndStrings(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{`1600`, 1600},
		{`250.5`, 250.5},
		{`"250.00"`, 250},
		{`"1600"`, 1600},
		{`0`, 0},
	}

	for _, tc := range cases {
		var m Money
		require.NoError(t, json.Unmarshal([]byte(tc.in), &m), "input %s", tc.in)
		assert.Equal(t, tc.want, float64(m), "input %s", tc.in)
	}
}

func TestMoney_DegradesToZeroOnBadInput(t *testing.T) {
	for _, in := range []string{`null`, `""`, `"abc"`, `"12,50"`} {
		var m Money
		require.NoError(t, json.Unmarshal([]byte(in), &m), "input %s", in)
		assert.Zero(t, float64(m), "input %s", in)
	}
}

func TestMoney_MissingFieldDefaultsToZero(t *testing.T) {
	var payload struct {
		Value Money `json:"value"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{}`), &payload))
	assert.Zero(t, float64(payload.Value))
}
