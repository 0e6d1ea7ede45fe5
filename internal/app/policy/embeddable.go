package policy

import (
	"context"

	"github.com/jsnphil/kentobot-api-sub000/internal/app/metadata"
)

// EmbeddableRule rejects songs that cannot be played through the
// embedded player on the stream overlay.
type EmbeddableRule struct{}

func (r *EmbeddableRule) Name() string {
	return "embeddable_rule"
}

func (r *EmbeddableRule) Description() string {
	return "Rejects songs that cannot be embedded"
}

func (r *EmbeddableRule) ReturnCodes() []string {
	return []string{"not_embeddable"}
}

func (r *EmbeddableRule) ValidateConfig(settings map[string]any) error {
	return nil
}

func (r *EmbeddableRule) Check(ctx context.Context, song metadata.Song) Result {
	if !song.Embeddable {
		return Reject("not_embeddable")
	}
	return Accept()
}

func init() {
	Register("embeddable_rule", func() Rule {
		return &EmbeddableRule{}
	})
}
