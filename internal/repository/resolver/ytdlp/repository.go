package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/lrstanley/go-ytdlp"
	"github.com/streamsave/server/internal/repository/resolver"
)

type repo struct {
	executable string
	sem        chan struct{}
}

// NewRepo returns a resolver backed by the yt-dlp executable. At most
// maxProcesses yt-dlp processes run at once.
func NewRepo(executable string, maxProcesses int) *repo {
	if maxProcesses < 1 {
		maxProcesses = 1
	}

	return &repo{
		executable: executable,
		sem:        make(chan struct{}, maxProcesses),
	}
}

func (r repo) command(opts resolver.Options) *ytdlp.Command {
	cmd := ytdlp.New().
		DumpJSON().
		SkipDownload().
		NoPlaylist().
		Quiet().
		NoWarnings()

	if r.executable != "" {
		cmd = cmd.SetExecutable(r.executable)
	}
	if opts.Format != "" {
		cmd = cmd.Format(opts.Format)
	}
	if opts.PlayerClient != "" {
		cmd = cmd.ExtractorArgs("youtube:player_client=" + opts.PlayerClient)
	}
	if opts.UserAgent != "" {
		cmd = cmd.UserAgent(opts.UserAgent)
	}
	if opts.Impersonate != "" {
		cmd = cmd.Impersonate(opts.Impersonate)
	}
	if !opts.CheckCertificates {
		cmd = cmd.NoCheckCertificates()
	}

	return cmd
}

func (r repo) Resolve(ctx context.Context, videoURL string, opts resolver.Options) (resolver.VideoInfo, error) {
	select {
	case r.sem <- struct{}{}:
		defer func() { <-r.sem }()
	case <-ctx.Done():
		return resolver.VideoInfo{}, ctx.Err()
	}

	res, err := r.command(opts).Run(ctx, videoURL)
	if err != nil {
		return resolver.VideoInfo{}, err
	}

	return decodeInfo([]byte(res.Stdout))
}

type ytDlpFormat struct {
	FormatID       string   `json:"format_id"`
	Ext            string   `json:"ext"`
	Height         *float64 `json:"height"`
	Filesize       *float64 `json:"filesize"`
	FilesizeApprox *float64 `json:"filesize_approx"`
}

type ytDlpJSON struct {
	Title     string        `json:"title"`
	Thumbnail string        `json:"thumbnail"`
	Duration  float64       `json:"duration"`
	Uploader  string        `json:"uploader"`
	URL       string        `json:"url"`
	Formats   []ytDlpFormat `json:"formats"`
}

func intOrZero[T int | int64](f *float64) T {
	if f == nil {
		return 0
	}

	return T(*f)
}

// decodeInfo reads the first JSON document yt-dlp printed.
func decodeInfo(stdout []byte) (resolver.VideoInfo, error) {
	var data ytDlpJSON
	if err := json.NewDecoder(bytes.NewReader(stdout)).Decode(&data); err != nil {
		return resolver.VideoInfo{}, fmt.Errorf("failed to decode yt-dlp output: %w", err)
	}

	info := resolver.VideoInfo{
		Title:     data.Title,
		Thumbnail: data.Thumbnail,
		Duration:  int(data.Duration),
		Uploader:  data.Uploader,
		URL:       data.URL,
		Formats:   make([]resolver.Format, 0, len(data.Formats)),
	}

	for _, f := range data.Formats {
		info.Formats = append(info.Formats, resolver.Format{
			FormatID:       f.FormatID,
			Ext:            f.Ext,
			Height:         intOrZero[int](f.Height),
			Filesize:       intOrZero[int64](f.Filesize),
			FilesizeApprox: intOrZero[int64](f.FilesizeApprox),
		})
	}

	return info, nil
}
