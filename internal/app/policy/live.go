package policy

import (
	"context"

	"github.com/jsnphil/kentobot-api-sub000/internal/app/metadata"
)

// LiveContentRule rejects live broadcasts, which have no fixed
// duration and cannot be queued.
type LiveContentRule struct{}

func (r *LiveContentRule) Name() string {
	return "live_content_rule"
}

func (r *LiveContentRule) Description() string {
	return "Rejects live broadcasts"
}

func (r *LiveContentRule) ReturnCodes() []string {
	return []string{"live_content"}
}

func (r *LiveContentRule) ValidateConfig(settings map[string]any) error {
	return nil
}

func (r *LiveContentRule) Check(ctx context.Context, song metadata.Song) Result {
	if song.Live {
		return Reject("live_content")
	}
	return Accept()
}

func init() {
	Register("live_content_rule", func() Rule {
		return &LiveContentRule{}
	})
}
