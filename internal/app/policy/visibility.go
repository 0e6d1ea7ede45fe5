package policy

import (
	"context"

	"github.com/jsnphil/kentobot-api-sub000/internal/app/metadata"
)

// VisibilityRule rejects songs that are not publicly visible.
type VisibilityRule struct{}

func (r *VisibilityRule) Name() string {
	return "visibility_rule"
}

func (r *VisibilityRule) Description() string {
	return "Rejects songs that are private or unlisted"
}

func (r *VisibilityRule) ReturnCodes() []string {
	return []string{"not_public"}
}

func (r *VisibilityRule) ValidateConfig(settings map[string]any) error {
	return nil
}

func (r *VisibilityRule) Check(ctx context.Context, song metadata.Song) Result {
	if !song.Public {
		return Reject("not_public")
	}
	return Accept()
}

func init() {
	Register("visibility_rule", func() Rule {
		return &VisibilityRule{}
	})
}
