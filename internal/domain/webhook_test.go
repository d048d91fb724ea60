package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProductMapping(t *testing.T) {
	raw := []byte(`{
		"prod_premium": {"tier": "premium", "credits": 500},
		"prod_enterprise": {"tier": "enterprise"}
	}`)

	mapping, err := ParseProductMapping(raw)
	require.NoError(t, err)

	grant, ok := mapping.Lookup("prod_premium")
	require.True(t, ok)
	assert.Equal(t, TierPremium, grant.Tier)
	assert.Equal(t, 500, grant.Credits)

	// Omitted credits default to the tier's monthly limit.
	grant, ok = mapping.Lookup("prod_enterprise")
	require.True(t, ok)
	assert.Equal(t, TierEnterprise, grant.Tier)
	assert.Equal(t, UnlimitedCredits, grant.Credits)

	_, ok = mapping.Lookup("prod_unknown")
	assert.False(t, ok)
}

func TestParseProductMappingErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"malformed JSON", `{"prod":`},
		{"unknown tier", `{"prod": {"tier": "platinum"}}`},
		{"empty tier", `{"prod": {"credits": 100}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProductMapping([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}
