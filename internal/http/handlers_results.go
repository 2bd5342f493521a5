package httpx

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/testfarm/broker/internal/data"
	"github.com/testfarm/broker/internal/domain/model"
	"github.com/testfarm/broker/internal/service"
)

// ArtifactDownloadName is the filename suggested for artifact downloads.
const ArtifactDownloadName = "artifact.tar.gz"

// ResultHandlers handles result posting, output streaming and artifact transfer.
type ResultHandlers struct {
	Results   *service.ResultStore
	Output    *service.OutputStream
	Artifacts *service.ArtifactStore
	// MaxArtifactBytes caps a single artifact upload.
	MaxArtifactBytes int64
	Logger           *slog.Logger
}

// PostResult handles POST /v1/result/{job_id}.
func (h *ResultHandlers) PostResult(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("job_id")

	var fields map[string]any
	if !DecodeJSON(w, r, &fields) {
		return
	}

	err := h.Results.Merge(r.Context(), id, fields)
	switch {
	case errors.Is(err, model.ErrInvalidJobID):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_job_id", Err: err})
		return
	case errors.Is(err, service.ErrJobNotFound):
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "job_not_found", Err: err})
		return
	case err != nil:
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "result_post_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"job_id": id})
}

// GetResult handles GET /v1/result/{job_id}.
func (h *ResultHandlers) GetResult(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("job_id")

	result, err := h.Results.Get(r.Context(), id)
	switch {
	case errors.Is(err, model.ErrInvalidJobID):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_job_id", Err: err})
		return
	case errors.Is(err, service.ErrJobNotFound):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "result_get_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// PostOutput handles POST /v1/result/{job_id}/output. The body is a raw text
// chunk, not JSON.
func (h *ResultHandlers) PostOutput(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("job_id")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "read_body_failed", Err: err})
		return
	}

	err = h.Output.Append(r.Context(), id, string(body))
	switch {
	case errors.Is(err, model.ErrInvalidJobID):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_job_id", Err: err})
		return
	case err != nil:
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "output_post_failed", Err: err})
		return
	}

	w.WriteHeader(http.StatusOK)
}

// GetOutput handles GET /v1/result/{job_id}/output. Reads are destructive:
// each buffered chunk is delivered to exactly one caller.
func (h *ResultHandlers) GetOutput(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("job_id")

	out, err := h.Output.Drain(r.Context(), id)
	switch {
	case errors.Is(err, model.ErrInvalidJobID):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_job_id", Err: err})
		return
	case errors.Is(err, data.ErrNoOutput):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "output_get_failed", Err: err})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, out)
}

// PostArtifact handles POST /v1/result/{job_id}/artifact. The bundle arrives
// as a multipart form file named "file".
func (h *ResultHandlers) PostArtifact(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("job_id")

	if h.MaxArtifactBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxArtifactBytes)
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_artifact_file", Err: err})
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && h.Logger != nil {
			h.Logger.Debug("artifact form file close failed", "error", closeErr)
		}
	}()

	err = h.Artifacts.Put(r.Context(), id, file)
	switch {
	case errors.Is(err, model.ErrInvalidJobID):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_job_id", Err: err})
		return
	case err != nil:
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "artifact_post_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"job_id": id})
}

// GetArtifact handles GET /v1/result/{job_id}/artifact, streaming the latest
// stored version.
func (h *ResultHandlers) GetArtifact(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("job_id")

	aw := &artifactWriter{w: w}
	err := h.Artifacts.Get(r.Context(), id, aw)
	switch {
	case errors.Is(err, model.ErrInvalidJobID):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_job_id", Err: err})
		return
	case errors.Is(err, data.ErrNoArtifact):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		if aw.started {
			// Headers are gone; nothing sane left to send.
			if h.Logger != nil {
				h.Logger.Error("artifact stream aborted mid-response", "job_id", id, "error", err)
			}
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "artifact_get_failed", Err: err})
		return
	}

	if !aw.started {
		// Stored version exists but carries zero bytes.
		aw.writeHeaders()
	}
}

// artifactWriter defers headers until the first chunk so a lookup miss can
// still answer 204.
type artifactWriter struct {
	w       http.ResponseWriter
	started bool
}

func (a *artifactWriter) writeHeaders() {
	a.w.Header().Set("Content-Type", "application/octet-stream")
	a.w.Header().Set("Content-Disposition", `attachment; filename="`+ArtifactDownloadName+`"`)
	a.w.WriteHeader(http.StatusOK)
	a.started = true
}

func (a *artifactWriter) Write(p []byte) (int, error) {
	if !a.started {
		a.writeHeaders()
	}
	return a.w.Write(p)
}
