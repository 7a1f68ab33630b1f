package video

import (
	"cmp"
	"fmt"
	"net/url"
	"slices"
	"strconv"

	"github.com/streamsave/server/internal/repository/resolver"
)

const (
	defaultExt      = "mp4"
	unknownFilesize = "Unknown"
)

var allowedExts = map[string]bool{
	"mp4":  true,
	"webm": true,
}

type Format struct {
	Resolution  string `json:"resolution"`
	Ext         string `json:"ext"`
	Filesize    string `json:"filesize"`
	DownloadURL string `json:"download_url"`
}

func formatFilesize(f resolver.Format) string {
	size := f.Filesize
	if size <= 0 {
		size = f.FilesizeApprox
	}
	if size <= 0 {
		return unknownFilesize
	}

	return fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
}

func downloadURL(videoURL, formatID string) string {
	q := url.Values{}
	q.Set("url", videoURL)
	q.Set("format_id", formatID)
	return "/download?" + q.Encode()
}

// buildFormats keeps the first mp4/webm format seen for every resolution and
// extension pair, highest resolution first.
func buildFormats(videoURL string, raw []resolver.Format) []Format {
	type variant struct {
		height int
		format Format
	}

	seen := make(map[string]struct{})
	variants := make([]variant, 0, len(raw))
	for _, f := range raw {
		if f.Height <= 0 {
			continue
		}

		ext := f.Ext
		if ext == "" {
			ext = defaultExt
		}
		if !allowedExts[ext] {
			continue
		}

		resolution := strconv.Itoa(f.Height) + "p"
		key := resolution + "-" + ext
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		variants = append(variants, variant{
			height: f.Height,
			format: Format{
				Resolution:  resolution,
				Ext:         ext,
				Filesize:    formatFilesize(f),
				DownloadURL: downloadURL(videoURL, f.FormatID),
			},
		})
	}

	slices.SortStableFunc(variants, func(a, b variant) int {
		return cmp.Compare(b.height, a.height)
	})

	formats := make([]Format, 0, len(variants))
	for _, v := range variants {
		formats = append(formats, v.format)
	}

	return formats
}
