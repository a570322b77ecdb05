package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/service"
)

type fakeService struct {
	uploaded  []domain.Document
	uploadErr error
	answer    domain.Answer
	askErr    error
	resetErr  error
	history   []domain.Turn
}

func (f *fakeService) Upload(_ context.Context, docs []domain.Document) (service.UploadResult, error) {
	f.uploaded = docs
	if f.uploadErr != nil {
		return service.UploadResult{}, f.uploadErr
	}
	if len(docs) == 0 {
		return service.UploadResult{}, domain.ErrEmptyInput
	}
	return service.UploadResult{
		SessionID: "sid-1",
		Documents: []service.DocumentSummary{{Source: docs[0].Source, Pages: 1, Passages: 2}},
	}, nil
}

func (f *fakeService) Ask(_ context.Context, id, _ string) (domain.Answer, error) {
	if id != "sid-1" {
		return domain.Answer{}, domain.ErrSessionNotFound
	}
	return f.answer, f.askErr
}

func (f *fakeService) Reset(_ context.Context, id string) error {
	if id != "sid-1" {
		return domain.ErrSessionNotFound
	}
	return f.resetErr
}

func (f *fakeService) History(_ context.Context, id string) ([]domain.Turn, error) {
	if id != "sid-1" {
		return nil, domain.ErrSessionNotFound
	}
	return f.history, nil
}

func newTestServer(svc Service, maxMB int) *Server {
	logger, _ := test.NewNullLogger()
	return New(config.ServerConfig{
		Address:     ":0",
		CORSOrigins: []string{"http://localhost:8000"},
		MaxUploadMB: maxMB,
	}, svc, logger)
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func do(s *Server, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestUpload(t *testing.T) {
	svc := &fakeService{}
	s := newTestServer(svc, 1)
	body, ct := multipartBody(t, map[string]string{"notes.txt": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)

	rec, resp := do(s, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sid-1", resp["session_id"])
	assert.Equal(t, "PDFs indexed successfully.", resp["message"])
	require.Len(t, svc.uploaded, 1)
	assert.Equal(t, "notes.txt", svc.uploaded[0].Source)
	assert.Equal(t, "hello", string(svc.uploaded[0].Data))
}

func TestUpload_NoFiles(t *testing.T) {
	s := newTestServer(&fakeService{}, 1)
	body, ct := multipartBody(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)

	rec, resp := do(s, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No files uploaded", resp["error"])
}

func TestUpload_IngestionFailure(t *testing.T) {
	s := newTestServer(&fakeService{uploadErr: errors.Join(domain.ErrIngestion, errors.New("bad pdf"))}, 1)
	body, ct := multipartBody(t, map[string]string{"a.pdf": "%PDF-"})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)

	rec, resp := do(s, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.HasPrefix(resp["error"].(string), "Failed to process PDFs: "))
}

func TestUpload_TooLarge(t *testing.T) {
	s := newTestServer(&fakeService{}, 1)
	body, ct := multipartBody(t, map[string]string{"big.txt": strings.Repeat("x", 2<<20)})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)

	rec, _ := do(s, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAsk(t *testing.T) {
	page := 2
	svc := &fakeService{answer: domain.Answer{
		Text:      "Goroutines.",
		Citations: []domain.Citation{{Source: "go.pdf", Page: &page, Snippet: "Goroutines are..."}},
	}}
	s := newTestServer(svc, 1)
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"session_id":"sid-1","question":"what?"}`))

	rec, resp := do(s, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Goroutines.", resp["answer"])
	sources := resp["sources"].([]any)
	require.Len(t, sources, 1)
	assert.Equal(t, map[string]any{"source": "go.pdf", "page": float64(2), "snippet": "Goroutines are..."}, sources[0])
}

func TestAsk_NullPageAndEmptySources(t *testing.T) {
	svc := &fakeService{answer: domain.Answer{Text: "none"}}
	s := newTestServer(svc, 1)
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"session_id":"sid-1","question":"q"}`))

	rec, _ := do(s, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"answer":"none","sources":[]}`, rec.Body.String())
}

func TestAsk_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		askErr error
		status int
		msg    string
	}{
		{"unknown session", `{"session_id":"nope","question":"q"}`, nil, http.StatusBadRequest, "Invalid session_id. Upload PDFs first."},
		{"empty question", `{"session_id":"sid-1","question":"  "}`, nil, http.StatusBadRequest, "Question must not be empty."},
		{"generation failure", `{"session_id":"sid-1","question":"q"}`, domain.ErrGeneration, http.StatusInternalServerError, "LLM error: generation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeService{askErr: tt.askErr}, 1)
			req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(tt.body))

			rec, resp := do(s, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.msg, resp["error"])
		})
	}
}

func TestAsk_InvalidJSON(t *testing.T) {
	s := newTestServer(&fakeService{}, 1)
	rec, _ := do(s, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReset(t *testing.T) {
	s := newTestServer(&fakeService{}, 1)

	rec, resp := do(s, httptest.NewRequest(http.MethodPost, "/reset", strings.NewReader(`{"session_id":"sid-1"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "History cleared.", resp["message"])

	rec, resp = do(s, httptest.NewRequest(http.MethodPost, "/reset", strings.NewReader(`{"session_id":"x"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid session_id", resp["error"])
}

func TestHistory(t *testing.T) {
	s := newTestServer(&fakeService{history: []domain.Turn{{Question: "q", Answer: "a"}}}, 1)

	rec, _ := do(s, httptest.NewRequest(http.MethodGet, "/sessions/sid-1/history", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"session_id":"sid-1","history":[{"question":"q","answer":"a"}]}`, rec.Body.String())

	rec, _ = do(s, httptest.NewRequest(http.MethodGet, "/sessions/other/history", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndCORS(t *testing.T) {
	s := newTestServer(&fakeService{}, 1)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:8000")

	rec, resp := do(s, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "http://localhost:8000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec, _ = do(s, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
