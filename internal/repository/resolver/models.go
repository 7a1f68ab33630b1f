package resolver

import "errors"

const (
	FormatBest      = "best"
	FormatBestAudio = "bestaudio/best"
)

var (
	ErrFormatNotFound  = errors.New("requested format is not available")
	ErrUnknownResolver = errors.New("unknown resolver")
)

// Options configures a single resolver call. Everything except Format
// describes how the upstream site sees the client.
type Options struct {
	Format            string
	UserAgent         string
	PlayerClient      string
	Impersonate       string
	CheckCertificates bool
}

type Format struct {
	FormatID       string
	Ext            string
	Height         int
	Filesize       int64
	FilesizeApprox int64
}

type VideoInfo struct {
	Title     string
	Thumbnail string
	Duration  int
	Uploader  string
	Formats   []Format
	URL       string
}
