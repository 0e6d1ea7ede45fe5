package policy

import (
	"context"

	"github.com/jsnphil/kentobot-api-sub000/internal/app/metadata"
)

// Chain executes policy rules in sequence.
type Chain struct {
	rules []Rule
}

// NewChain creates a new policy chain.
func NewChain() *Chain {
	return &Chain{
		rules: make([]Rule, 0),
	}
}

// Add adds a rule to the chain.
func (c *Chain) Add(r Rule) {
	c.rules = append(c.rules, r)
}

// Execute runs all rules in sequence, returning immediately if any
// rule rejects the song.
func (c *Chain) Execute(ctx context.Context, song metadata.Song) Result {
	for _, r := range c.rules {
		result := r.Check(ctx, song)
		if !result.Accepted {
			return result
		}
	}
	return Accept()
}

// Rules returns all rules in the chain.
func (c *Chain) Rules() []Rule {
	return c.rules
}
