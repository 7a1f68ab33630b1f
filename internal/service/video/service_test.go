package video

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/streamsave/server/internal/repository/resolver"
	"github.com/streamsave/server/pkg/pagemeta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolverStub struct {
	info  resolver.VideoInfo
	err   error
	calls atomic.Int32
	last  resolver.Options
	mu    sync.Mutex
	wait  chan struct{}
}

func (r *resolverStub) Resolve(ctx context.Context, _ string, opts resolver.Options) (resolver.VideoInfo, error) {
	r.calls.Add(1)
	r.mu.Lock()
	r.last = opts
	r.mu.Unlock()
	if r.wait != nil {
		select {
		case <-r.wait:
		case <-ctx.Done():
			return resolver.VideoInfo{}, ctx.Err()
		}
	}
	return r.info, r.err
}

type pageReaderStub struct {
	data *pagemeta.PageData
	err  error
}

func (p pageReaderStub) Get(context.Context, string) (*pagemeta.PageData, error) {
	return p.data, p.err
}

func newTestService(r iResolver, p iPageReader) *service {
	return NewService(r, p, slog.Default(), &Config{
		PlayerClient:     "ios",
		UserAgent:        "test-agent",
		MetadataFallback: true,
	})
}

const videoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func TestAnalyze(t *testing.T) {
	stub := &resolverStub{info: resolver.VideoInfo{
		Title:     "Never Gonna Give You Up",
		Thumbnail: "https://i.ytimg.com/vi/dQw4w9WgXcQ/maxresdefault.jpg",
		Duration:  212,
		Uploader:  "Rick Astley",
		Formats: []resolver.Format{
			{FormatID: "160", Ext: "mp4", Height: 144, Filesize: 1048576},
			{FormatID: "22", Ext: "mp4", Height: 720},
			{FormatID: "18", Ext: "mp4", Height: 360, FilesizeApprox: 5347737},
		},
	}}
	s := newTestService(stub, nil)

	resp, err := s.Analyze(context.Background(), &AnalyzeParams{URL: videoURL})
	require.NoError(t, err)

	assert.Equal(t, "Never Gonna Give You Up", resp.Title)
	assert.Equal(t, "Rick Astley", resp.Channel)
	assert.Equal(t, 212, resp.DurationSeconds)
	assert.Equal(t, "3:32", resp.DurationString)
	require.Len(t, resp.Formats, 3)
	assert.Equal(t, "720p", resp.Formats[0].Resolution)
	assert.Equal(t, "360p", resp.Formats[1].Resolution)
	assert.Equal(t, "144p", resp.Formats[2].Resolution)
	assert.Equal(t, "Unknown", resp.Formats[0].Filesize)
	assert.Equal(t, "5.1 MB", resp.Formats[1].Filesize)
	assert.Equal(t, "1.0 MB", resp.Formats[2].Filesize)

	assert.Equal(t, resolver.Options{
		Format:       resolver.FormatBest,
		UserAgent:    "test-agent",
		PlayerClient: "ios",
	}, stub.last)
}

func TestAnalyzeDefaults(t *testing.T) {
	s := newTestService(&resolverStub{}, nil)

	resp, err := s.Analyze(context.Background(), &AnalyzeParams{URL: videoURL})
	require.NoError(t, err)
	assert.Equal(t, defaultTitle, resp.Title)
	assert.Equal(t, defaultChannel, resp.Channel)
	assert.Empty(t, resp.Thumbnail)
	assert.Equal(t, "0:00", resp.DurationString)
	assert.NotNil(t, resp.Formats)
	assert.Empty(t, resp.Formats)
}

func TestAnalyzeMetadataFallback(t *testing.T) {
	stub := &resolverStub{info: resolver.VideoInfo{Title: "From resolver"}}
	pages := pageReaderStub{data: &pagemeta.PageData{
		Title:     "From page",
		Thumbnail: "https://example.com/thumb.jpg",
		Channel:   "Page channel",
	}}
	s := newTestService(stub, pages)

	resp, err := s.Analyze(context.Background(), &AnalyzeParams{URL: videoURL})
	require.NoError(t, err)
	assert.Equal(t, "From resolver", resp.Title)
	assert.Equal(t, "https://example.com/thumb.jpg", resp.Thumbnail)
	assert.Equal(t, "Page channel", resp.Channel)
}

func TestAnalyzeMetadataFallbackDisabled(t *testing.T) {
	pages := pageReaderStub{data: &pagemeta.PageData{Title: "From page"}}
	s := NewService(&resolverStub{}, pages, slog.Default(), &Config{})

	resp, err := s.Analyze(context.Background(), &AnalyzeParams{URL: videoURL})
	require.NoError(t, err)
	assert.Equal(t, defaultTitle, resp.Title)
}

func TestAnalyzeMetadataFallbackError(t *testing.T) {
	s := newTestService(&resolverStub{}, pageReaderStub{err: errors.New("connection refused")})

	resp, err := s.Analyze(context.Background(), &AnalyzeParams{URL: videoURL})
	require.NoError(t, err)
	assert.Equal(t, defaultTitle, resp.Title)
	assert.Equal(t, defaultChannel, resp.Channel)
}

func TestAnalyzeMissingURL(t *testing.T) {
	stub := &resolverStub{}
	s := newTestService(stub, nil)

	_, err := s.Analyze(context.Background(), &AnalyzeParams{})
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "url")
	assert.Zero(t, stub.calls.Load())
}

func TestAnalyzeResolverError(t *testing.T) {
	s := newTestService(&resolverStub{err: errors.New("ERROR: [youtube] dQw4w9WgXcQ: Sign in to confirm you're not a bot")}, nil)

	_, err := s.Analyze(context.Background(), &AnalyzeParams{URL: videoURL})
	assert.EqualError(t, err, "ERROR: [youtube] dQw4w9WgXcQ: Sign in to confirm you're not a bot")
}

func TestResolveFormat(t *testing.T) {
	stub := &resolverStub{info: resolver.VideoInfo{URL: "https://rr1---sn.googlevideo.com/videoplayback?itag=22"}}
	s := newTestService(stub, nil)

	directURL, err := s.ResolveFormat(context.Background(), &ResolveFormatParams{URL: videoURL, FormatID: "22"})
	require.NoError(t, err)
	assert.Equal(t, "https://rr1---sn.googlevideo.com/videoplayback?itag=22", directURL)
	assert.Equal(t, "22", stub.last.Format)
}

func TestResolveFormatValidation(t *testing.T) {
	s := newTestService(&resolverStub{}, nil)

	_, err := s.ResolveFormat(context.Background(), &ResolveFormatParams{URL: videoURL})
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "format_id")
	assert.NotContains(t, verrs, "url")
}

func TestResolveFormatNoDirectURL(t *testing.T) {
	s := newTestService(&resolverStub{}, nil)

	_, err := s.ResolveFormat(context.Background(), &ResolveFormatParams{URL: videoURL, FormatID: "22"})
	assert.ErrorIs(t, err, ErrNoDirectURL)
}

func TestResolveAudio(t *testing.T) {
	stub := &resolverStub{info: resolver.VideoInfo{URL: "https://rr1---sn.googlevideo.com/videoplayback?itag=251"}}
	s := newTestService(stub, nil)

	directURL, err := s.ResolveAudio(context.Background(), &ResolveAudioParams{URL: videoURL})
	require.NoError(t, err)
	assert.Equal(t, "https://rr1---sn.googlevideo.com/videoplayback?itag=251", directURL)
	assert.Equal(t, resolver.FormatBestAudio, stub.last.Format)
}

func TestResolveCoalescesConcurrentCalls(t *testing.T) {
	stub := &resolverStub{
		info: resolver.VideoInfo{URL: "https://example.com/media"},
		wait: make(chan struct{}),
	}
	s := newTestService(stub, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			directURL, err := s.ResolveAudio(context.Background(), &ResolveAudioParams{URL: videoURL})
			assert.NoError(t, err)
			assert.Equal(t, "https://example.com/media", directURL)
		}()
	}

	require.Eventually(t, func() bool { return stub.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(stub.wait)
	wg.Wait()

	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestResolveSurvivesFirstCallerCancel(t *testing.T) {
	stub := &resolverStub{
		info: resolver.VideoInfo{URL: "https://example.com/media"},
		wait: make(chan struct{}),
	}
	s := newTestService(stub, nil)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.ResolveAudio(firstCtx, &ResolveAudioParams{URL: videoURL})
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return stub.calls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		url string
		err error
	}
	second := make(chan result, 1)
	go func() {
		directURL, err := s.ResolveAudio(context.Background(), &ResolveAudioParams{URL: videoURL})
		second <- result{url: directURL, err: err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(stub.wait)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, "https://example.com/media", res.url)
	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestDownloadURLIsQueryEncoded(t *testing.T) {
	link := downloadURL("https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10", "18")

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/download", u.Path)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10", u.Query().Get("url"))
	assert.Equal(t, "18", u.Query().Get("format_id"))
}
