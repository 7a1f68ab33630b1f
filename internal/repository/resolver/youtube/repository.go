package youtube

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/streamsave/server/internal/repository/resolver"
)

type repo struct {
	transport         *http.Transport
	insecureTransport *http.Transport
	logger            *slog.Logger
}

// NewRepo returns a resolver that talks to YouTube directly, without yt-dlp.
// The player client and impersonation options are yt-dlp specific and are
// ignored here.
func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		transport:         newTransport(false),
		insecureTransport: newTransport(true),
		logger:            logger,
	}
}

func newTransport(insecure bool) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: insecure},
	}
}

type userAgentTransport struct {
	userAgent string
	next      http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.next.RoundTrip(req)
}

func (r repo) httpClient(opts resolver.Options) *http.Client {
	var rt http.RoundTripper = r.transport
	if !opts.CheckCertificates {
		rt = r.insecureTransport
	}
	if opts.UserAgent != "" {
		rt = userAgentTransport{userAgent: opts.UserAgent, next: rt}
	}

	return &http.Client{Transport: rt}
}

func (r repo) Resolve(ctx context.Context, videoURL string, opts resolver.Options) (resolver.VideoInfo, error) {
	if opts.PlayerClient != "" || opts.Impersonate != "" {
		r.logger.DebugContext(ctx, "player client and impersonation are not supported by the youtube resolver",
			"player_client", opts.PlayerClient,
			"impersonate", opts.Impersonate,
		)
	}

	client := youtube.Client{HTTPClient: r.httpClient(opts)}

	video, err := client.GetVideoContext(ctx, videoURL)
	if err != nil {
		return resolver.VideoInfo{}, err
	}

	info := resolver.VideoInfo{
		Title:    video.Title,
		Duration: int(video.Duration.Seconds()),
		Uploader: video.Author,
		Formats:  make([]resolver.Format, 0, len(video.Formats)),
	}
	if len(video.Thumbnails) > 0 {
		info.Thumbnail = video.Thumbnails[len(video.Thumbnails)-1].URL
	}

	for _, f := range video.Formats {
		info.Formats = append(info.Formats, resolver.Format{
			FormatID: strconv.Itoa(f.ItagNo),
			Ext:      extFromMimeType(f.MimeType),
			Height:   f.Height,
			Filesize: f.ContentLength,
		})
	}

	format, err := selectFormat(video.Formats, opts.Format)
	if err != nil {
		return resolver.VideoInfo{}, err
	}

	info.URL, err = client.GetStreamURLContext(ctx, video, format)
	if err != nil {
		return resolver.VideoInfo{}, fmt.Errorf("failed to get stream url: %w", err)
	}

	return info, nil
}

// extFromMimeType maps "video/mp4; codecs=..." to the extension yt-dlp would report.
func extFromMimeType(mimeType string) string {
	mediaType, _, _ := strings.Cut(mimeType, ";")
	kind, subtype, ok := strings.Cut(strings.TrimSpace(mediaType), "/")
	if !ok {
		return ""
	}

	if kind == "audio" && subtype == "mp4" {
		return "m4a"
	}

	return subtype
}

// selectFormat understands the small subset of the yt-dlp format syntax the
// gateway uses: "best", "bestaudio", numeric format ids and "/" alternatives.
func selectFormat(formats youtube.FormatList, selector string) (*youtube.Format, error) {
	if selector == "" {
		selector = resolver.FormatBest
	}

	for _, alt := range strings.Split(selector, "/") {
		if f := selectOne(formats, strings.TrimSpace(alt)); f != nil {
			return f, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", resolver.ErrFormatNotFound, selector)
}

func selectOne(formats youtube.FormatList, selector string) *youtube.Format {
	switch selector {
	case "best":
		var best *youtube.Format
		for i := range formats {
			f := &formats[i]
			if f.Height == 0 || f.AudioChannels == 0 {
				continue
			}
			if best == nil || f.Height > best.Height {
				best = f
			}
		}
		return best
	case "bestaudio":
		var best *youtube.Format
		for i := range formats {
			f := &formats[i]
			if f.Height != 0 || f.AudioChannels == 0 {
				continue
			}
			if best == nil || f.Bitrate > best.Bitrate {
				best = f
			}
		}
		return best
	}

	itag, err := strconv.Atoi(selector)
	if err != nil {
		return nil
	}

	if l := formats.Itag(itag); len(l) > 0 {
		return &l[0]
	}
	return nil
}
