package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmitchellscott/pdfgateway/internal/auth"
	"github.com/rmitchellscott/pdfgateway/internal/config"
	"github.com/rmitchellscott/pdfgateway/internal/gateway"
	"github.com/rmitchellscott/pdfgateway/internal/staging"
	"github.com/rmitchellscott/pdfgateway/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router   *gin.Engine
	stageDir string
	calls    *int32
}

func newEnv(t *testing.T, authCfg config.Auth, upstream http.HandlerFunc) *testEnv {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		upstream(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := config.Defaults()
	cfg.Upstream.BaseURL = srv.URL
	cfg.Upstream.APIKey = "up-key"
	cfg.Upstream.APISecret = "up-secret"
	cfg.Upstream.Timeout = time.Second
	cfg.Staging.Dir = t.TempDir()
	cfg.Auth = authCfg

	backend := storage.NewFilesystemBackend(cfg.Staging.Dir)
	gw := gateway.New(cfg.Upstream, backend, gateway.WithLogger(zerolog.Nop()))

	router := NewRouter(Deps{
		Config:  cfg,
		Gateway: gw,
		Stager:  staging.NewStager(backend),
		Auth:    auth.New(cfg.Auth),
	})
	return &testEnv{router: router, stageDir: cfg.Staging.Dir, calls: &calls}
}

type formFile struct {
	field, name, body string
}

func multipartRequest(t *testing.T, path string, files []formFile, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		part.Write([]byte(f.body))
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) assertStagingEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(e.stageDir, staging.KeyPrefix))
	if os.IsNotExist(err) {
		return
	}
	require.NoError(t, err)
	assert.Empty(t, entries, "staged files left behind")
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestMergeEndToEnd(t *testing.T) {
	env := newEnv(t, config.Auth{}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/merge", r.URL.Path)
		assert.Equal(t, "up-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "up-secret", r.Header.Get("x-api-secret"))
		if assert.NoError(t, r.ParseMultipartForm(32<<20)) {
			assert.Len(t, r.MultipartForm.File["files"], 2)
		}
		w.Header().Set("Content-Type", "application/pdf")
		io.WriteString(w, "%PDF-1.7 merged")
	})

	w := env.serve(multipartRequest(t, "/api/merge", []formFile{
		{"files", "a.pdf", "%PDF-1.7 a"},
		{"files", "b.pdf", "%PDF-1.7 b"},
	}, nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["fileCount"])
	assert.True(t, strings.HasPrefix(body["fileName"].(string), "merged_"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	env.assertStagingEmpty(t)
}

func TestMergeOneFileRejected(t *testing.T) {
	env := newEnv(t, config.Auth{}, func(w http.ResponseWriter, r *http.Request) {})

	w := env.serve(multipartRequest(t, "/api/merge", []formFile{{"files", "a.pdf", "%PDF"}}, nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"At least 2 PDF files are required for merging"}`, w.Body.String())
	assert.Zero(t, atomic.LoadInt32(env.calls))
	env.assertStagingEmpty(t)
}

func TestOCRMissingFile(t *testing.T) {
	env := newEnv(t, config.Auth{}, func(w http.ResponseWriter, r *http.Request) {})

	w := env.serve(httptest.NewRequest(http.MethodPost, "/api/ocr", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"OCR failed","message":"File missing!"}`, w.Body.String())
}

func TestOCRBodyOverLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	t.Cleanup(srv.Close)

	cfg := config.Defaults()
	cfg.Upstream.BaseURL = srv.URL
	stageDir := t.TempDir()
	backend := storage.NewFilesystemBackend(stageDir)

	h := NewOperationHandler(gateway.New(cfg.Upstream, backend, gateway.WithLogger(zerolog.Nop())), staging.NewStager(backend))
	h.bodyLimit = 1024
	router := gin.New()
	router.POST("/api/ocr", h.Handle(gateway.OpOCR))

	req := multipartRequest(t, "/api/ocr", []formFile{{"file", "scan.pdf", "%PDF-1.4\n" + strings.Repeat("x", 8<<10)}}, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.JSONEq(t, `{"error":"OCR failed","message":"File too large"}`, w.Body.String())
	assert.Zero(t, atomic.LoadInt32(&calls))
	env := &testEnv{stageDir: stageDir}
	env.assertStagingEmpty(t)
}

func TestOCRSuccess(t *testing.T) {
	env := newEnv(t, config.Auth{}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eng", r.FormValue("language"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"text":"Invoice 42","confidence":88,"language":"eng","page_count":1}}`)
	})

	w := env.serve(multipartRequest(t, "/api/ocr", []formFile{{"file", "scan.pdf", "%PDF-1.4"}}, nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Invoice 42", body["text"])
	assert.Equal(t, float64(1), body["page_count"])
	env.assertStagingEmpty(t)
}

func TestSplitUpstreamError(t *testing.T) {
	env := newEnv(t, config.Auth{}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	w := env.serve(multipartRequest(t, "/api/split", []formFile{{"file", "deck.pdf", "%PDF"}},
		map[string]string{"pages": "99-100"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Split failed","message":"Invalid page range or file format."}`, w.Body.String())
	env.assertStagingEmpty(t)
}

func TestImagesOptionValidation(t *testing.T) {
	env := newEnv(t, config.Auth{}, func(w http.ResponseWriter, r *http.Request) {})

	w := env.serve(multipartRequest(t, "/api/images-to-pdf", []formFile{{"files", "a.png", "\x89PNG\r\n\x1a\n"}},
		map[string]string{"page_size": "Tabloid"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, atomic.LoadInt32(env.calls))
	env.assertStagingEmpty(t)
}

func TestAuthRequired(t *testing.T) {
	env := newEnv(t, config.Auth{APIKey: "inbound"}, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		io.WriteString(w, "%PDF")
	})

	req := multipartRequest(t, "/api/pdf-to-excel", []formFile{{"file", "r.pdf", "%PDF"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, env.serve(req).Code)
	assert.Zero(t, atomic.LoadInt32(env.calls))

	req = multipartRequest(t, "/api/pdf-to-excel", []formFile{{"file", "r.pdf", "%PDF"}}, nil)
	req.Header.Set("X-Gateway-Key", "inbound")
	w := env.serve(req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "r.xlsx", decode(t, w)["fileName"])

	// health stays open
	assert.Equal(t, http.StatusOK, env.serve(httptest.NewRequest(http.MethodGet, "/api/health", nil)).Code)
}

func TestConfigEndpoint(t *testing.T) {
	env := newEnv(t, config.Auth{JWTSecret: "s"}, func(w http.ResponseWriter, r *http.Request) {})

	w := env.serve(httptest.NewRequest(http.MethodGet, "/api/config", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["authEnabled"])
	assert.Equal(t, true, body["jwtEnabled"])
	assert.Equal(t, true, body["upstreamConfigured"])
	assert.Equal(t, "filesystem", body["stagingBackend"])
	assert.Len(t, body["operations"], 5)
	assert.NotContains(t, w.Body.String(), "up-secret")
}

func TestCORSPreflight(t *testing.T) {
	env := newEnv(t, config.Auth{APIKey: "inbound"}, func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodOptions, "/api/merge", nil)
	req.Header.Set("Origin", "https://app.example")
	w := env.serve(req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
}
