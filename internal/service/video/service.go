package video

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/streamsave/server/internal/repository/resolver"
	"github.com/streamsave/server/pkg/pagemeta"
	"golang.org/x/sync/singleflight"
)

const resolveTimeout = 2 * time.Minute

var ErrNoDirectURL = errors.New("resolver returned no direct url")

type iResolver interface {
	Resolve(context.Context, string, resolver.Options) (resolver.VideoInfo, error)
}

type iPageReader interface {
	Get(context.Context, string) (*pagemeta.PageData, error)
}

// Config holds the client impersonation parameters passed to the resolver
// on every call. MetadataFallback enables reading missing title, thumbnail
// and channel from the video page.
type Config struct {
	UserAgent         string
	PlayerClient      string
	Impersonate       string
	CheckCertificates bool
	MetadataFallback  bool
}

type service struct {
	resolver   iResolver
	pageReader iPageReader
	logger     *slog.Logger
	config     *Config
	group      singleflight.Group
}

func NewService(res iResolver, pageReader iPageReader, logger *slog.Logger, cfg *Config) *service {
	return &service{
		resolver:   res,
		pageReader: pageReader,
		logger:     logger,
		config:     cfg,
	}
}

func (s *service) resolveOptions(format string) resolver.Options {
	return resolver.Options{
		Format:            format,
		UserAgent:         s.config.UserAgent,
		PlayerClient:      s.config.PlayerClient,
		Impersonate:       s.config.Impersonate,
		CheckCertificates: s.config.CheckCertificates,
	}
}

// resolve coalesces concurrent calls for the same url and format into one
// resolver call. The shared call is detached from the caller's cancellation
// so one client going away does not fail the others; each caller still stops
// waiting when its own context is done.
func (s *service) resolve(ctx context.Context, videoURL, format string) (resolver.VideoInfo, error) {
	key := format + "\x00" + videoURL
	ch := s.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resolveTimeout)
		defer cancel()

		start := time.Now()
		info, err := s.resolver.Resolve(callCtx, videoURL, s.resolveOptions(format))
		s.logger.DebugContext(callCtx, "resolver call finished",
			"url", videoURL,
			"format", format,
			"duration", time.Since(start),
			"error", err,
		)
		return info, err
	})

	select {
	case res := <-ch:
		if res.Shared {
			s.logger.DebugContext(ctx, "resolver call was coalesced", "url", videoURL, "format", format)
		}
		if res.Err != nil {
			return resolver.VideoInfo{}, res.Err
		}

		return res.Val.(resolver.VideoInfo), nil
	case <-ctx.Done():
		return resolver.VideoInfo{}, ctx.Err()
	}
}
