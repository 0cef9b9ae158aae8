package classify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"visionbridge/internal/middleware"
)

type Handler struct {
	service        *Service
	maxUploadBytes int64
}

func NewHandler(service *Service, maxUploadMB int64) *Handler {
	return &Handler{service: service, maxUploadBytes: maxUploadMB << 20}
}

// Submit accepts a multipart image upload, dispatches it for classification
// and waits for the result under the configured deadline. 200 with the
// result on completion, 202 with the correlation id when the deadline
// elapses first.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "multipart body required, within size limit", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image_file")
	if err != nil {
		// The older frontend posts the part as "file".
		file, header, err = r.FormFile("file")
	}
	if err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "image file part is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "unable to read uploaded file", http.StatusBadRequest)
		return
	}

	attrs := map[string]string{}
	for k, v := range r.MultipartForm.Value {
		if len(v) > 0 {
			attrs[k] = v[0]
		}
	}

	out, err := h.service.Submit(r.Context(), payload, header.Filename, attrs)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyFilename):
			h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrStaging):
			slog.ErrorContext(r.Context(), "staging failed", "error", err)
			h.writeOutcomeError(r.Context(), w, out, "STAGING_ERROR", "failed to stage uploaded file", http.StatusInternalServerError)
		case errors.Is(err, ErrDispatch):
			slog.ErrorContext(r.Context(), "dispatch failed", "error", err)
			h.writeOutcomeError(r.Context(), w, out, "DISPATCH_ERROR", "failed to dispatch classification task", http.StatusInternalServerError)
		default:
			slog.ErrorContext(r.Context(), "submission failed", "error", err)
			h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	h.writeOutcome(w, out)
}

// Redeem is the later, non-blocking check for a previously issued
// correlation id. 200 with the result when present, 202 otherwise.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("correlation_id")
	if id == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "correlation id is required", http.StatusBadRequest)
		return
	}

	out, err := h.service.Redeem(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "redemption failed", "error", err, "job_id", id)
		h.writeError(r.Context(), w, "STORE_UNAVAILABLE", "result store unavailable, try again", http.StatusServiceUnavailable)
		return
	}

	h.writeOutcome(w, out)
}

func (h *Handler) writeOutcome(w http.ResponseWriter, out *Outcome) {
	w.Header().Set("Content-Type", "application/json")
	if out.Status == StatusCompleted {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusAccepted)
	}
	if err := json.NewEncoder(w).Encode(out); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// writeOutcomeError reports a submission-time failure while still handing
// the caller the allocated job id. The envelope is writeError's, with the
// pending outcome nested under "outcome" so its id stays redeemable.
func (h *Handler) writeOutcomeError(ctx context.Context, w http.ResponseWriter, out *Outcome, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}
	if out != nil {
		resp["outcome"] = out
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
