// Package auth guards the operator endpoints with static API keys.
package auth

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

const (
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)

// Identity is the caller an API key belongs to.
type Identity struct {
	Name  string
	Roles []string
}

func (i Identity) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

type StaticKeys struct {
	keys map[string]Identity
}

// ParseStaticKeys reads a comma separated list of key:name:role|role
// entries. An empty spec yields a validator that accepts nothing.
func ParseStaticKeys(spec string) (*StaticKeys, error) {
	out := &StaticKeys{keys: map[string]Identity{}}
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		key, rest, ok := strings.Cut(entry, ":")
		name, roleList, ok2 := strings.Cut(rest, ":")
		if !ok || !ok2 {
			return nil, fmt.Errorf("invalid static key entry %q: expected key:name:role|role", entry)
		}
		key, name = strings.TrimSpace(key), strings.TrimSpace(name)
		if key == "" || name == "" {
			return nil, fmt.Errorf("invalid static key entry %q: empty key or name", entry)
		}
		if _, dup := out.keys[key]; dup {
			return nil, fmt.Errorf("duplicate static key for %q", name)
		}

		roles := make([]string, 0)
		for _, role := range strings.Split(roleList, "|") {
			role = strings.ToLower(strings.TrimSpace(role))
			if role != "" && !slices.Contains(roles, role) {
				roles = append(roles, role)
			}
		}
		if len(roles) == 0 {
			return nil, fmt.Errorf("invalid static key entry %q: at least one role is required", entry)
		}
		slices.Sort(roles)
		out.keys[key] = Identity{Name: name, Roles: roles}
	}
	return out, nil
}

func (s *StaticKeys) Validate(_ context.Context, apiKey string) (Identity, bool) {
	identity, ok := s.keys[apiKey]
	return identity, ok
}

func (s *StaticKeys) Len() int { return len(s.keys) }
