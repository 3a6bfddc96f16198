package storage

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/review"
)

// ReviewHandler serves GET and PUT /jobs/{jobId}/review from a BlobStore,
// the server side of HTTPStore. PUT bodies must be valid review payloads
// for the job in the path and are stored normalised.
func ReviewHandler(store BlobStore, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /jobs/{jobId}/review", func(w http.ResponseWriter, r *http.Request) {
		jobID := r.PathValue("jobId")
		data, err := store.Get(r.Context(), ReviewKey(jobID))
		if errors.Is(err, ErrNotFound) {
			writeDetail(w, http.StatusNotFound, "review not found")
			return
		}
		if err != nil {
			logger.Error("review read failed", "job_id", jobID, "error", err)
			writeDetail(w, http.StatusInternalServerError, "review store unavailable")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	})

	mux.HandleFunc("PUT /jobs/{jobId}/review", func(w http.ResponseWriter, r *http.Request) {
		jobID := r.PathValue("jobId")
		body, err := io.ReadAll(io.LimitReader(r.Body, 8<<20))
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "unreadable body")
			return
		}
		payload, err := review.Decode(body)
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if payload.JobID != jobID {
			writeDetail(w, http.StatusBadRequest, "jobId mismatch")
			return
		}
		// Stored in normalised form: overrides that carry nothing are dropped.
		data, err := json.Marshal(payload)
		if err != nil {
			writeDetail(w, http.StatusInternalServerError, "review encode failed")
			return
		}
		if err := store.Put(r.Context(), ReviewKey(jobID), data); err != nil {
			logger.Error("review write failed", "job_id", jobID, "error", err)
			writeDetail(w, http.StatusInternalServerError, "review store unavailable")
			return
		}
		logger.Info("review stored", "job_id", jobID, "instances", payload.Len())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	})

	return mux
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
