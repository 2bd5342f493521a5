package httpx

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testfarm/broker/internal/data"
	"github.com/testfarm/broker/internal/domain/model"
	"go.uber.org/mock/gomock"
)

func TestPostResultHandler(t *testing.T) {
	router, jobs, _, _ := newTestRouter(t)
	id := model.NewJobID()

	jobs.EXPECT().
		MergeResult(gomock.Any(), id, map[string]any{"exit_code": float64(0), "job_state": "completed"}).
		Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/result/"+id,
		strings.NewReader(`{"exit_code": 0, "job_state": "completed"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Bad UUID rejected before storage.
	req = httptest.NewRequest(http.MethodPost, "/v1/result/not-a-uuid", strings.NewReader(`{}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown job answers 404, not a silent 200.
	unknown := model.NewJobID()
	jobs.EXPECT().
		MergeResult(gomock.Any(), unknown, map[string]any{"exit_code": float64(1)}).
		Return(data.ErrJobNotFound)
	req = httptest.NewRequest(http.MethodPost, "/v1/result/"+unknown, strings.NewReader(`{"exit_code": 1}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetResultHandler(t *testing.T) {
	router, jobs, _, _ := newTestRouter(t)
	id := model.NewJobID()

	jobs.EXPECT().GetResult(gomock.Any(), id).Return(map[string]any{
		model.StateKey: "running",
		"exit_code":    float64(0),
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/result/"+id, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"job_state":"running"`)

	unknown := model.NewJobID()
	jobs.EXPECT().GetResult(gomock.Any(), unknown).Return(nil, data.ErrJobNotFound)
	req = httptest.NewRequest(http.MethodGet, "/v1/result/"+unknown, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestOutputHandlers(t *testing.T) {
	router, _, output, _ := newTestRouter(t)
	id := model.NewJobID()

	output.EXPECT().Append(gomock.Any(), id, "provisioning...").Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/result/"+id+"/output",
		strings.NewReader("provisioning..."))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	output.EXPECT().Drain(gomock.Any(), id).Return("provisioning...", nil)
	req = httptest.NewRequest(http.MethodGet, "/v1/result/"+id+"/output", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "provisioning...", rec.Body.String())

	// Drained buffer answers 204.
	output.EXPECT().Drain(gomock.Any(), id).Return("", data.ErrNoOutput)
	req = httptest.NewRequest(http.MethodGet, "/v1/result/"+id+"/output", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func multipartBody(t *testing.T, field, filename string, content []byte) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestArtifactHandlers(t *testing.T) {
	router, _, _, artifacts := newTestRouter(t)
	id := model.NewJobID()
	payload := []byte("tarball bytes")

	artifacts.EXPECT().
		Put(gomock.Any(), id, gomock.Any()).
		DoAndReturn(func(_ any, _ string, r io.Reader) error {
			got, readErr := io.ReadAll(r)
			require.NoError(t, readErr)
			assert.Equal(t, payload, got)
			return nil
		})

	body, contentType := multipartBody(t, "file", "artifact.tar.gz", payload)
	req := httptest.NewRequest(http.MethodPost, "/v1/result/"+id+"/artifact", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Missing form file is a validation error.
	req = httptest.NewRequest(http.MethodPost, "/v1/result/"+id+"/artifact", strings.NewReader("raw"))
	req.Header.Set("Content-Type", "application/octet-stream")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Download streams the stored bytes with a download filename.
	artifacts.EXPECT().
		Get(gomock.Any(), id, gomock.Any()).
		DoAndReturn(func(_ any, _ string, w io.Writer) error {
			_, writeErr := w.Write(payload)
			return writeErr
		})

	req = httptest.NewRequest(http.MethodGet, "/v1/result/"+id+"/artifact", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payload, rec.Body.Bytes())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ArtifactDownloadName)

	// No stored artifact answers 204.
	artifacts.EXPECT().Get(gomock.Any(), id, gomock.Any()).Return(data.ErrNoArtifact)
	req = httptest.NewRequest(http.MethodGet, "/v1/result/"+id+"/artifact", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
