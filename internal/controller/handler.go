package controller

import (
	"net/http"

	"github.com/streamsave/server/internal/service/video"
	"github.com/streamsave/server/pkg/rest"
)

const noURLMessage = "No URL provided"

func (c controller) home(w http.ResponseWriter, r *http.Request) {
	rest.WriteText(w, http.StatusOK, "StreamSave Server is ON! 🟢 ("+c.config.Mode+" Mode)")
}

type analyzeInput struct {
	URL string `json:"url" validate:"required"`
}

func (c controller) analyze(w http.ResponseWriter, r *http.Request) {
	var input analyzeInput
	if err := rest.ReadJSON(r, &input); err != nil {
		c.logger.InfoContext(r.Context(), "failed to read json", "error", err)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": noURLMessage})
		return
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.logger.InfoContext(r.Context(), "invalid analyze input", "errors", validationErrors)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": noURLMessage})
		return
	}

	resp, err := c.videoService.Analyze(r.Context(), &video.AnalyzeParams{URL: input.URL})
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to analyze video", "url", input.URL, "error", err)
		if isValidationError(err) {
			rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": err.Error()})
			return
		}

		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": err.Error()})
		return
	}

	rest.WriteJSON(w, http.StatusOK, resp)
}

func (c controller) download(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	directURL, err := c.videoService.ResolveFormat(r.Context(), &video.ResolveFormatParams{
		URL:      query.Get("url"),
		FormatID: query.Get("format_id"),
	})
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to resolve format", "error", err)
		c.writeTextError(w, err)
		return
	}

	http.Redirect(w, r, directURL, http.StatusFound)
}

func (c controller) downloadAudio(w http.ResponseWriter, r *http.Request) {
	directURL, err := c.videoService.ResolveAudio(r.Context(), &video.ResolveAudioParams{
		URL: r.URL.Query().Get("url"),
	})
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to resolve audio", "error", err)
		c.writeTextError(w, err)
		return
	}

	http.Redirect(w, r, directURL, http.StatusFound)
}
