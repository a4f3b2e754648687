package api

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/socialchef/moodbite/internal/errors"
	"github.com/socialchef/moodbite/internal/recommendation"
)

const (
	maxJSONBody = 1 << 20
	fieldVideo  = "video"
	videoURLKey = "video_url"
)

type WelcomeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Service string `json:"service"`
	Version string `json:"version"`
}

func (s *Server) HandleWelcome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, WelcomeResponse{
		Status:  "healthy",
		Message: "Food Recommendation API is running",
		Service: s.cfg.ServiceName,
		Version: s.cfg.ServiceVersion,
	})
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// HandleRecommend accepts either {"video_url": ...} or already extracted
// features and answers with a normalized recommendation.
func (s *Server) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeObject(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var rec recommendation.Recommendation
	if raw, ok := fields[videoURLKey]; ok && raw != nil {
		locator, err := videoURL(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		rec, _, err = s.recommender.RecommendVideo(r.Context(), locator)
		if err != nil {
			writeError(w, r, err)
			return
		}
	} else {
		input, err := recommendation.DecodeInput(fields)
		if err != nil {
			writeError(w, r, err)
			return
		}
		rec, err = s.recommender.Recommend(r.Context(), input)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, rec)
}

// HandleUpload streams the multipart "video" file to feature extraction.
func (s *Server) HandleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.Limits.MaxUploadMB << 20
	if r.ContentLength > limit {
		writeError(w, r, uploadTooLarge(s.cfg.Limits.MaxUploadMB))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mediaType != "multipart/form-data" {
		writeError(w, r, errors.NewClientInputError(
			"request must be multipart/form-data", "INVALID_CONTENT_TYPE", "Send the video as a multipart form field named \"video\"."))
		return
	}

	reader, err := r.MultipartReader()
	if err != nil {
		writeError(w, r, errors.NewClientInputError("invalid multipart body", "INVALID_MULTIPART", ""))
		return
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			var maxErr *http.MaxBytesError
			if stderrors.As(err, &maxErr) {
				writeError(w, r, uploadTooLarge(s.cfg.Limits.MaxUploadMB))
				return
			}
			writeError(w, r, errors.NewClientInputError("invalid multipart body", "INVALID_MULTIPART", ""))
			return
		}
		if part.FormName() != fieldVideo || part.FileName() == "" {
			part.Close()
			continue
		}

		rec, _, err := s.recommender.RecommendUpload(r.Context(), part.FileName(), part)
		part.Close()
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
		return
	}

	writeError(w, r, errors.NewClientInputError(
		"video file is required", "MISSING_VIDEO", "Send the video as a multipart form field named \"video\"."))
}

func uploadTooLarge(maxMB int64) error {
	return errors.NewClientInputError("video upload is too large", "UPLOAD_TOO_LARGE",
		"Upload a video smaller than "+formatMB(maxMB)+".")
}

func formatMB(n int64) string {
	return strconv.FormatInt(n, 10) + " MB"
}

// decodeObject reads a JSON object body. Numbers are kept as json.Number so
// vector components are not rounded before validation.
func decodeObject(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return nil, errors.NewClientInputError(
			"request body must be a JSON object", "INVALID_JSON", "Send a JSON object with emotion_vector or video_url.")
	}
	return fields, nil
}

// videoURL accepts only absolute http(s) URLs with a host.
func videoURL(raw any) (string, error) {
	invalid := errors.NewClientInputError(
		"video_url must be an http or https URL", "INVALID_VIDEO_URL", "Send a publicly reachable video URL.")

	s, ok := raw.(string)
	if !ok {
		return "", invalid
	}
	s = strings.TrimSpace(s)
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", invalid
	}
	return s, nil
}
