package auth

import "strings"

// Scopes understood by the user endpoints.
const (
	ScopeMe    = "me"
	ScopeItems = "items"
)

// ScopeDescriptions documents the known scopes.
var ScopeDescriptions = map[string]string{
	ScopeMe:    "Read information about the current user",
	ScopeItems: "Create items",
}

// ScopeRequirement lists the scopes an endpoint demands. Empty means any
// authenticated identity is enough.
type ScopeRequirement []string

// RequireScopes builds a normalised requirement.
func RequireScopes(scopes ...string) ScopeRequirement {
	return ScopeRequirement(NormalizeScopes(scopes))
}

// SatisfiedBy reports whether every required scope appears verbatim in granted.
func (r ScopeRequirement) SatisfiedBy(granted []string) bool {
	return len(r.Missing(granted)) == 0
}

// Missing returns the required scopes absent from granted, in requirement order.
func (r ScopeRequirement) Missing(granted []string) []string {
	if len(r) == 0 {
		return nil
	}
	have := make(map[string]struct{}, len(granted))
	for _, s := range granted {
		have[s] = struct{}{}
	}
	var missing []string
	for _, s := range r {
		if _, ok := have[s]; !ok {
			missing = append(missing, s)
		}
	}
	return missing
}

// String renders the requirement in OAuth2 form (space separated).
func (r ScopeRequirement) String() string {
	return strings.Join(r, " ")
}

// NormalizeScopes trims, drops empties and de-duplicates while keeping order and case.
func NormalizeScopes(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	seen := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// ParseScopeString splits an OAuth2 "scope" parameter.
func ParseScopeString(raw string) []string {
	return NormalizeScopes(strings.Fields(raw))
}
