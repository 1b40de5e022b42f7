package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRiskProfile(t *testing.T) {
	for _, in := range []string{"conservative", "balanced", "aggressive"} {
		got, err := ParseRiskProfile(in)
		require.NoError(t, err)
		assert.Equal(t, RiskProfile(in), got)
		assert.True(t, got.Valid())
	}

	got, err := ParseRiskProfile("")
	require.NoError(t, err)
	assert.Equal(t, RiskBalanced, got)

	_, err = ParseRiskProfile("Balanced")
	assert.Error(t, err)

	assert.False(t, RiskProfile("").Valid())
	assert.False(t, RiskProfile("yolo").Valid())
}
