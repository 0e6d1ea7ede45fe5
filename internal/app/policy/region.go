package policy

import (
	"context"

	"github.com/jsnphil/kentobot-api-sub000/internal/app/metadata"
)

// RegionRule checks if the song is available in the configured region.
type RegionRule struct {
	region string
}

// NewRegionRule creates a new RegionRule for the given region code.
func NewRegionRule(region string) *RegionRule {
	return &RegionRule{region: region}
}

func (r *RegionRule) Name() string {
	return "region_rule"
}

func (r *RegionRule) Description() string {
	return "Checks if the song is available in the configured region"
}

func (r *RegionRule) ReturnCodes() []string {
	return []string{"region_restriction"}
}

func (r *RegionRule) ValidateConfig(settings map[string]any) error {
	return nil
}

func (r *RegionRule) Check(ctx context.Context, song metadata.Song) Result {
	if r.region == "" {
		return Accept()
	}
	if !song.AvailableInRegion(r.region) {
		return Reject("region_restriction")
	}
	return Accept()
}
