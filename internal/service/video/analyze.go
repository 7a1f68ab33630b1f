package video

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/streamsave/server/internal/repository/resolver"
)

const (
	defaultTitle   = "Unknown Title"
	defaultChannel = "Unknown Channel"
)

type AnalyzeParams struct {
	URL string `json:"url"`
}

type AnalyzeResponse struct {
	Title           string   `json:"title"`
	Thumbnail       string   `json:"thumbnail"`
	Channel         string   `json:"channel"`
	DurationSeconds int      `json:"duration_seconds"`
	DurationString  string   `json:"duration_string"`
	Formats         []Format `json:"formats"`
}

func (s *service) Analyze(ctx context.Context, params *AnalyzeParams) (AnalyzeResponse, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.URL, VideoURLRule...),
	); err != nil {
		return AnalyzeResponse{}, err
	}

	info, err := s.resolve(ctx, params.URL, resolver.FormatBest)
	if err != nil {
		return AnalyzeResponse{}, err
	}

	s.fillMissingMetadata(ctx, params.URL, &info)

	title := info.Title
	if title == "" {
		title = defaultTitle
	}
	channel := info.Uploader
	if channel == "" {
		channel = defaultChannel
	}

	return AnalyzeResponse{
		Title:           title,
		Thumbnail:       info.Thumbnail,
		Channel:         channel,
		DurationSeconds: info.Duration,
		DurationString:  FormatDuration(info.Duration),
		Formats:         buildFormats(params.URL, info.Formats),
	}, nil
}

func (s *service) fillMissingMetadata(ctx context.Context, videoURL string, info *resolver.VideoInfo) {
	if !s.config.MetadataFallback || s.pageReader == nil || (info.Title != "" && info.Thumbnail != "" && info.Uploader != "") {
		return
	}

	page, err := s.pageReader.Get(ctx, videoURL)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to read page metadata", "url", videoURL, "error", err)
		return
	}

	if info.Title == "" {
		info.Title = page.Title
	}
	if info.Thumbnail == "" {
		info.Thumbnail = page.Thumbnail
	}
	if info.Uploader == "" {
		info.Uploader = page.Channel
	}
}
