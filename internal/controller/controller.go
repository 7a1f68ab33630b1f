package controller

import (
	"context"
	"log/slog"

	"github.com/streamsave/server/internal/service/video"
	"github.com/streamsave/server/pkg/validator"
)

type iVideoService interface {
	Analyze(context.Context, *video.AnalyzeParams) (video.AnalyzeResponse, error)
	ResolveFormat(context.Context, *video.ResolveFormatParams) (string, error)
	ResolveAudio(context.Context, *video.ResolveAudioParams) (string, error)
}

type iRateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Config holds presentation and network settings of the controller. Mode is
// shown in the root banner, e.g. "iOS". TrustProxy makes the client address
// come from X-Forwarded-For/X-Real-IP, which is only safe behind a proxy that
// overwrites those headers.
type Config struct {
	Mode       string
	TrustProxy bool
}

type controller struct {
	videoService iVideoService
	rateLimiter  iRateLimiter
	validate     *validator.Validator
	logger       *slog.Logger
	config       *Config
}

// NewController creates the HTTP controller. rateLimiter may be nil to
// disable rate limiting.
func NewController(videoService iVideoService, rateLimiter iRateLimiter, logger *slog.Logger, cfg *Config) *controller {
	return &controller{
		videoService: videoService,
		rateLimiter:  rateLimiter,
		validate:     validator.NewValidator(),
		logger:       logger,
		config:       cfg,
	}
}
