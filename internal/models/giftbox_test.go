package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTier(t *testing.T) {
	tests := []struct {
		input string
		want  Tier
	}{
		{"premium", TierPremium},
		{"  Premium ", TierPremium},
		{"standard", TierStandard},
		{"", TierStandard},
		{"gold", TierStandard},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTier(tt.input))
		})
	}
}

func TestBrandPolicy_Permits(t *testing.T) {
	t.Run("lenient mode permits everything", func(t *testing.T) {
		policy := BrandPolicy{DenyList: []string{"Gucci"}}
		assert.True(t, policy.Permits("Gucci"))
		assert.True(t, policy.Permits("Nike"))
	})

	t.Run("strict mode needs allow and no deny", func(t *testing.T) {
		policy := BrandPolicy{
			AllowList:  []string{"nike", "Gucci"},
			DenyList:   []string{"gucci"},
			StrictMode: true,
		}
		assert.True(t, policy.Permits("Nike"))
		assert.False(t, policy.Permits("Gucci"))
		assert.False(t, policy.Permits("Reebok"))
	})
}

func TestContentRef_DataURI(t *testing.T) {
	var nilRef *ContentRef
	assert.Equal(t, "", nilRef.DataURI())

	remote := &ContentRef{URI: "https://cdn.example.com/box.png", Data: []byte("ignored")}
	assert.Equal(t, "https://cdn.example.com/box.png", remote.DataURI())

	inline := &ContentRef{MIMEType: "image/png", Data: []byte("abc")}
	assert.Equal(t, "data:image/png;base64,YWJj", inline.DataURI())
}

func TestTagSet_HasMode(t *testing.T) {
	tags := TagSet{Modes: []Mode{ModeThemed}}
	assert.True(t, tags.HasMode(ModeThemed))
	assert.False(t, TagSet{}.HasMode(ModeThemed))
}
