package policy

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/jsnphil/kentobot-api-sub000/internal/app/metadata"
)

// DurationConfig represents the configuration for DurationRule.
type DurationConfig struct {
	MinSeconds float64 `yaml:"min_seconds" mapstructure:"min_seconds" default:"10" validate:"gte=0"`
	MaxSeconds float64 `yaml:"max_seconds" mapstructure:"max_seconds" default:"600" validate:"gte=0"`
}

// DurationRule checks if song duration is within allowed limits.
type DurationRule struct {
	config *DurationConfig
}

// NewDurationRule creates a new duration rule.
func NewDurationRule() *DurationRule {
	return &DurationRule{}
}

func (r *DurationRule) Name() string {
	return "duration_rule"
}

func (r *DurationRule) Description() string {
	return "Checks if song duration is within allowed limits"
}

func (r *DurationRule) ReturnCodes() []string {
	return []string{"duration_limit_exceeded"}
}

func (r *DurationRule) ValidateConfig(settings map[string]any) error {
	var config DurationConfig

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &config,
		TagName: "mapstructure",
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}

	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}

	if err := defaults.Set(&config); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}

	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}

	// A max of 0 means no upper limit.
	if config.MaxSeconds > 0 && config.MinSeconds > config.MaxSeconds {
		return errors.New("min_seconds cannot be greater than max_seconds")
	}

	r.config = &config
	zlog.Info().Msgf("duration rule config: %+v", config)
	return nil
}

func (r *DurationRule) Check(ctx context.Context, song metadata.Song) Result {
	// If config is not set, accept all songs.
	if r.config == nil {
		return Accept()
	}

	seconds := song.Duration.Seconds()

	if seconds < r.config.MinSeconds {
		return Reject("duration_limit_exceeded")
	}
	if r.config.MaxSeconds > 0 && seconds > r.config.MaxSeconds {
		return Reject("duration_limit_exceeded")
	}

	return Accept()
}

func init() {
	Register("duration_rule", func() Rule {
		return &DurationRule{}
	})
}
