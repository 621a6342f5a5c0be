package upload

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"taskchat/internal/chat"
	"taskchat/pkg/metrics"
)

// multipart metadata headroom on top of the per-file limits
const formOverhead = 1 << 20

// Handler serves the multipart upload endpoint. Files arrive under the
// "files" form field, at most maxFiles per call.
type Handler struct {
	log  *slog.Logger
	pipe *Pipeline
}

func NewHandler(logger *slog.Logger, pipe *Pipeline) *Handler {
	return &Handler{log: logger, pipe: pipe}
}

type uploadResponse struct {
	Files []chat.Attachment `json:"files"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	limit := h.pipe.maxBytes*int64(h.pipe.maxFiles) + formOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.log.Debug("upload.parse", "err", err)
		writeError(w, "could not parse upload")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	batch := make([]File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeError(w, "could not read uploaded file")
			return
		}
		defer f.Close()
		batch = append(batch, File{
			Name:      fh.Filename,
			MediaType: fh.Header.Get("Content-Type"),
			Size:      fh.Size,
			Content:   f,
		})
	}

	files, err := h.pipe.Accept(batch)
	if err != nil {
		metrics.UploadsRejected.WithLabelValues(rejectReason(err)).Inc()
		h.log.Debug("upload.rejected", "err", err)
		writeError(w, err.Error())
		return
	}

	metrics.UploadsTotal.Add(float64(len(files)))
	h.log.Info("upload.accepted", "count", len(files))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(uploadResponse{Files: files})
}

func writeError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

func rejectReason(err error) string {
	var ut *UnsupportedTypeError
	switch {
	case errors.Is(err, ErrTooManyFiles):
		return "too_many_files"
	case errors.Is(err, ErrNoAcceptedFiles):
		return "no_accepted_files"
	case errors.Is(err, ErrSizeLimit):
		return "size_limit"
	case errors.As(err, &ut):
		return "unsupported_type"
	default:
		return "invalid"
	}
}
