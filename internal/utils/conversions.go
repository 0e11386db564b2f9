package utils

import "strings"

// SplitScopes splits a space delimited scope string into its individual scopes.
func SplitScopes(scope string) []string {
	return strings.Fields(scope)
}

// JoinScopes joins scopes into a space delimited scope string, dropping blanks and duplicates.
func JoinScopes(scopes []string) string {
	seen := make(map[string]struct{}, len(scopes))
	out := make([]string, 0, len(scopes))
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
	return strings.Join(out, " ")
}
