// File: internal/profile/profile.go
package profile

import (
	"fmt"
	"os"

	json "github.com/json-iterator/go"

	"github.com/formpilot/formpilot-cli/api/schemas"
)

// Load reads a user profile snapshot from a JSON file. Two layouts are
// accepted: the canonical {"fields": {...}, "customFields": {...}} form, and
// a bare flat object which is treated as the fields mapping.
func Load(path string) (schemas.UserProfile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return schemas.UserProfile{}, fmt.Errorf("failed to read profile file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a profile snapshot from raw JSON.
func Parse(raw []byte) (schemas.UserProfile, error) {
	var p schemas.UserProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return schemas.UserProfile{}, fmt.Errorf("failed to parse profile: %w", err)
	}
	if p.Fields != nil {
		return p, nil
	}

	// Bare flat object fallback.
	var flat map[string]string
	if err := json.Unmarshal(raw, &flat); err != nil {
		return schemas.UserProfile{}, fmt.Errorf("profile is neither the canonical layout nor a flat string mapping: %w", err)
	}
	return schemas.UserProfile{Fields: flat}, nil
}
