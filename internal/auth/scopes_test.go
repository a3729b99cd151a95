package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeRequirementSubset(t *testing.T) {
	cases := []struct {
		name     string
		required ScopeRequirement
		granted  []string
		want     bool
	}{
		{"empty requirement", RequireScopes(), nil, true},
		{"exact", RequireScopes("me"), []string{"me"}, true},
		{"superset granted", RequireScopes("me"), []string{"me", "items"}, true},
		{"missing one", RequireScopes("me", "items"), []string{"me"}, false},
		{"case sensitive", RequireScopes("me"), []string{"ME"}, false},
		{"no wildcard", RequireScopes("items"), []string{"*"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.required.SatisfiedBy(tc.granted))
		})
	}
}

func TestMissingKeepsRequirementOrder(t *testing.T) {
	assert.Equal(t, []string{"items", "admin"}, RequireScopes("items", "me", "admin").Missing([]string{"me"}))
}

func TestNormalizeAndParseScopes(t *testing.T) {
	assert.Equal(t, []string{"me", "items", "Me"}, NormalizeScopes([]string{" me", "items", "", "me", "Me"}))
	assert.Equal(t, []string{"me", "items"}, ParseScopeString("  me items  me "))
	assert.Empty(t, ParseScopeString(""))
	assert.Equal(t, "me items", RequireScopes("me", "items").String())
}
