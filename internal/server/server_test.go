package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/fattura-processor/internal/fixtures"
	"github.com/rezonia/fattura-processor/internal/metrics"
	"github.com/rezonia/fattura-processor/internal/model"
	"github.com/rezonia/fattura-processor/internal/resource"
	"github.com/rezonia/fattura-processor/internal/schema"
	"github.com/rezonia/fattura-processor/internal/server"
	"github.com/rezonia/fattura-processor/pkg/fatturalib"
)

type stubTransformer struct {
	err error
}

func (s stubTransformer) Transform(context.Context, string, string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "<html><body>fattura</body></html>", nil
}

type stubPrinter struct{}

func (stubPrinter) Print(context.Context, string) ([]byte, error) {
	return []byte("%PDF-1.7"), nil
}

func newTestServer(t *testing.T, opts ...fatturalib.Option) *server.Server {
	t.Helper()
	base := []fatturalib.Option{
		fatturalib.WithStore(resource.NewFSStore(fixtures.Resources())),
		fatturalib.WithValidator(schema.Unavailable{}),
		fatturalib.WithTransformer(stubTransformer{}),
		fatturalib.WithPrinter(stubPrinter{}),
	}
	proc, err := fatturalib.New(append(base, opts...)...)
	require.NoError(t, err)

	return server.NewServer(&server.Config{Address: ":8080", Debug: true}, proc)
}

func post(t *testing.T, srv *server.Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/xml")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) server.ErrorResponse {
	t.Helper()
	var resp server.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response server.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)
	assert.NotEmpty(t, response.Time)
	assert.False(t, response.Capabilities.Validation)
	assert.True(t, response.Capabilities.Transformation)
}

func TestDetectEndpoint(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name    string
		body    string
		subType fatturalib.SubType
	}{
		{"ordinaria", fixtures.Ordinaria(), fatturalib.Ordinaria},
		{"semplificata", fixtures.Semplificata(), fatturalib.Semplificata},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, srv, "/api/v1/detect", tt.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var resp server.DetectResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.subType, resp.SubType)
			assert.Equal(t, "versione", resp.Phase)
			assert.Equal(t, []string{model.SchemaSemplificata, model.SchemaOrdinaria}, resp.Tried)
		})
	}
}

func TestDetectEndpoint_Unrecognized(t *testing.T) {
	srv := newTestServer(t)

	w := post(t, srv, "/api/v1/detect", fixtures.WithoutVersione(fixtures.Ordinaria()))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	resp := decodeError(t, w)
	assert.Equal(t, "unrecognized_format", resp.Kind)
	assert.Equal(t, []string{model.SchemaSemplificata, model.SchemaOrdinaria}, resp.Tried)
}

func TestDetectEndpoint_EmptyBody(t *testing.T) {
	srv := newTestServer(t)

	w := post(t, srv, "/api/v1/detect", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "empty request body", decodeError(t, w).Error)
}

func TestValidateEndpoint_UnknownVerdict(t *testing.T) {
	srv := newTestServer(t)

	w := post(t, srv, "/api/v1/validate", fixtures.Ordinaria())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp server.ValidationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, fatturalib.Ordinaria, resp.SubType)
	assert.False(t, resp.Valid)
	assert.Equal(t, fatturalib.VerdictUnknown, resp.Verdict)
	assert.Equal(t, model.SchemaOrdinaria, resp.Schema)
}

func TestValidateEndpoint_ValidatorFailure(t *testing.T) {
	failing := schema.ValidatorFunc(func(context.Context, string, string) (model.ValidationResult, error) {
		return model.ValidationResult{}, errors.New("xmllint: out of memory")
	})
	srv := newTestServer(t, fatturalib.WithValidator(failing))

	w := post(t, srv, "/api/v1/validate", fixtures.Ordinaria())
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "validation_unavailable", decodeError(t, w).Kind)
}

func TestInfoEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := post(t, srv, "/api/v1/info", fixtures.Semplificata())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "p:FatturaElettronicaSemplificata", resp["root"])
	summary := resp["summary"].(map[string]any)
	assert.Equal(t, "semplificata", summary["subtype"])
	assert.Equal(t, "FS-17", summary["number"])
}

func TestRenderEndpoints(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		path        string
		contentType string
		contains    string
	}{
		{"/api/v1/render/json", "application/json; charset=utf-8", `"p:FatturaElettronica"`},
		{"/api/v1/render/html", "text/html; charset=utf-8", "fattura"},
		{"/api/v1/render/pdf", "application/pdf", "%PDF-1.7"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := post(t, srv, tt.path, fixtures.Ordinaria())
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, tt.contentType, w.Header().Get("Content-Type"))
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}
}

func TestRenderEndpoint_TransformationFailed(t *testing.T) {
	tr := stubTransformer{err: model.NewTransformationFailedError("xsltproc", "stylesheet produced an empty result", nil)}
	srv := newTestServer(t, fatturalib.WithTransformer(tr))

	w := post(t, srv, "/api/v1/render/html", fixtures.Ordinaria())
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "transformation_failed", decodeError(t, w).Kind)
}

func TestRenderEndpoint_MissingStylesheet(t *testing.T) {
	store := resource.NewMapStore()
	srv := newTestServer(t, fatturalib.WithStore(store))

	w := post(t, srv, "/api/v1/render/html", fixtures.Ordinaria())
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "resource_not_found", resp.Kind)
	assert.Contains(t, resp.Error, "styles/FatturaOrdinaria.xsl")
}

func TestParseError(t *testing.T) {
	srv := newTestServer(t)

	w := post(t, srv, "/api/v1/render/json", "not xml at all")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "parse", decodeError(t, w).Kind)
}

func TestVerifyEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := post(t, srv, "/api/v1/verify", fixtures.Ordinaria())
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "signature", decodeError(t, w).Kind)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify", bytes.NewReader([]byte{0x30, 0x82, 0x05, 0x00, 0x06}))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestBodyLimit(t *testing.T) {
	proc, err := fatturalib.New(
		fatturalib.WithStore(resource.NewFSStore(fixtures.Resources())),
		fatturalib.WithValidator(schema.Unavailable{}),
	)
	require.NoError(t, err)
	srv := server.NewServer(&server.Config{MaxBodyBytes: 64}, proc)

	w := post(t, srv, "/api/v1/detect", fixtures.Ordinaria())
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRequestID(t *testing.T) {
	srv := newTestServer(t)

	w := post(t, srv, "/api/v1/detect", "")
	generated := w.Header().Get("X-Request-ID")
	_, err := uuid.Parse(generated)
	require.NoError(t, err)
	assert.Equal(t, generated, decodeError(t, w).RequestID)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	proc, err := fatturalib.New(
		fatturalib.WithStore(resource.NewFSStore(fixtures.Resources())),
		fatturalib.WithValidator(schema.Unavailable{}),
		fatturalib.WithMetrics(m),
	)
	require.NoError(t, err)
	srv := server.NewServer(&server.Config{}, proc, server.WithMetrics(m, reg))

	w := post(t, srv, "/api/v1/detect", fixtures.Ordinaria())
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `fattura_http_requests_total{code="200",route="/api/v1/detect"} 1`)
	assert.Contains(t, body, `fattura_detections_total{phase="versione",subtype="ordinaria"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/process/xml", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
