// Package policy provides the content-policy chain for song requests.
package policy

import (
	"context"

	"github.com/jsnphil/kentobot-api-sub000/internal/app/metadata"
)

// Result represents the result of a policy check.
type Result struct {
	Accepted bool
	Code     string // e.g., "region_restriction", "duration_limit_exceeded"
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code.
func Reject(code string) Result {
	return Result{Accepted: false, Code: code}
}

// Rule is the interface for content-policy rules.
type Rule interface {
	// Name returns the rule name (used in config).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ReturnCodes returns the codes this rule can return.
	ReturnCodes() []string
	// ValidateConfig validates the rule configuration.
	ValidateConfig(settings map[string]any) error
	// Check performs the policy check.
	Check(ctx context.Context, song metadata.Song) Result
}

// registry holds registered rule factories.
var registry = make(map[string]func() Rule)

// Register registers a rule factory.
func Register(name string, factory func() Rule) {
	registry[name] = factory
}

// GetRegistered returns all registered rule factories.
func GetRegistered() map[string]func() Rule {
	return registry
}
