// Package auth validates API keys for the HTTP surface. The dev
// default runs with auth disabled and leaves every endpoint open.
package auth

import (
	"context"
	"fmt"
	"strings"
)

const (
	// RoleAdmin may trigger archive runs.
	RoleAdmin = "admin"
	// RoleReader is accepted for read surfaces when keys are enforced.
	RoleReader = "reader"
)

type Identity struct {
	Role string
}

// HasRole reports whether the identity satisfies the required role.
// Admins satisfy every role.
func (i Identity) HasRole(role string) bool {
	return i.Role == role || i.Role == RoleAdmin
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

// StaticAPIKeyValidator resolves keys from a comma-separated
// "key:role" spec, the shape BICOPILOT_AUTH_STATIC_KEYS carries.
type StaticAPIKeyValidator struct {
	keys map[string]Identity
}

func NewStaticAPIKeyValidator(spec string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{keys: map[string]Identity{}}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return validator, nil
	}

	for _, entry := range strings.Split(spec, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid static key entry %q: expected key:role", entry)
		}
		key := strings.TrimSpace(parts[0])
		role := strings.TrimSpace(parts[1])
		if key == "" || role == "" {
			return nil, fmt.Errorf("invalid static key entry %q: empty key/role", entry)
		}
		validator.keys[key] = Identity{Role: role}
	}

	return validator, nil
}

// Empty reports whether any keys are configured. With no keys the API
// runs open.
func (v *StaticAPIKeyValidator) Empty() bool {
	return len(v.keys) == 0
}

func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Identity, bool) {
	identity, ok := v.keys[apiKey]
	return identity, ok
}
