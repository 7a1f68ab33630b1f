package video

import (
	"testing"

	"github.com/streamsave/server/internal/repository/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolutions(formats []Format) []string {
	res := make([]string, 0, len(formats))
	for _, f := range formats {
		res = append(res, f.Resolution+"-"+f.Ext)
	}
	return res
}

func TestBuildFormatsSortsDescending(t *testing.T) {
	formats := buildFormats(videoURL, []resolver.Format{
		{FormatID: "160", Ext: "mp4", Height: 144},
		{FormatID: "22", Ext: "mp4", Height: 720},
		{FormatID: "18", Ext: "mp4", Height: 360},
	})

	assert.Equal(t, []string{"720p-mp4", "360p-mp4", "144p-mp4"}, resolutions(formats))
}

func TestBuildFormatsDeduplicates(t *testing.T) {
	formats := buildFormats(videoURL, []resolver.Format{
		{FormatID: "18", Ext: "mp4", Height: 360, Filesize: 2097152},
		{FormatID: "134", Ext: "mp4", Height: 360},
		{FormatID: "243", Ext: "webm", Height: 360},
		{FormatID: "396", Ext: "webm", Height: 360},
	})

	require.Len(t, formats, 2)
	assert.Equal(t, []string{"360p-mp4", "360p-webm"}, resolutions(formats))
	assert.Equal(t, "2.0 MB", formats[0].Filesize, "first seen variant wins")
	assert.Contains(t, formats[0].DownloadURL, "format_id=18")
	assert.Contains(t, formats[1].DownloadURL, "format_id=243")
}

func TestBuildFormatsFilters(t *testing.T) {
	formats := buildFormats(videoURL, []resolver.Format{
		{FormatID: "140", Ext: "m4a"},
		{FormatID: "251", Ext: "webm"},
		{FormatID: "sb0", Ext: "mhtml", Height: 45},
		{FormatID: "hls-1080", Ext: "", Height: 1080},
		{FormatID: "flv", Ext: "flv", Height: 240},
	})

	require.Len(t, formats, 1)
	assert.Equal(t, "1080p", formats[0].Resolution)
	assert.Equal(t, "mp4", formats[0].Ext, "missing ext defaults to mp4")
}

func TestFormatFilesize(t *testing.T) {
	assert.Equal(t, "Unknown", formatFilesize(resolver.Format{}))
	assert.Equal(t, "12.3 MB", formatFilesize(resolver.Format{Filesize: 12897485}))
	assert.Equal(t, "0.5 MB", formatFilesize(resolver.Format{FilesizeApprox: 524288}))
	assert.Equal(t, "1.0 MB", formatFilesize(resolver.Format{Filesize: 1048576, FilesizeApprox: 99999999}))
}
