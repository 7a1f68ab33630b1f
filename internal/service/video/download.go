package video

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/streamsave/server/internal/repository/resolver"
)

type ResolveFormatParams struct {
	URL      string `json:"url"`
	FormatID string `json:"format_id"`
}

// ResolveFormat returns the direct media url of one format of the video.
func (s *service) ResolveFormat(ctx context.Context, params *ResolveFormatParams) (string, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.URL, VideoURLRule...),
		validation.Field(&params.FormatID, FormatIDRule...),
	); err != nil {
		return "", err
	}

	return s.directURL(ctx, params.URL, params.FormatID)
}

type ResolveAudioParams struct {
	URL string `json:"url"`
}

// ResolveAudio returns the direct media url of the best audio format, or of
// the best combined format when the video has no separate audio.
func (s *service) ResolveAudio(ctx context.Context, params *ResolveAudioParams) (string, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.URL, VideoURLRule...),
	); err != nil {
		return "", err
	}

	return s.directURL(ctx, params.URL, resolver.FormatBestAudio)
}

func (s *service) directURL(ctx context.Context, videoURL, format string) (string, error) {
	info, err := s.resolve(ctx, videoURL, format)
	if err != nil {
		return "", err
	}

	if info.URL == "" {
		return "", ErrNoDirectURL
	}

	return info.URL, nil
}
