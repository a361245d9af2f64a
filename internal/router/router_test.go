package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"docintake/internal/domain"
	"docintake/internal/handler"
	"docintake/internal/metrics"
	"docintake/internal/router"
	"docintake/mocks"
)

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

func TestSetup_Routes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := new(mocks.MockDocumentService)
	m := metrics.NewPipelineMetrics()
	r := router.Setup(router.Handlers{
		Document: handler.NewDocumentHandler(svc),
		Webhook:  handler.NewWebhookHandler(svc, ""),
		Health:   handler.NewHealthHandler(okPinger{}),
		Metrics:  m.Handler(),
	}, m, nil)

	docID := uuid.New()
	svc.On("GetByID", mock.Anything, docID).Return(&domain.Document{ID: docID}, nil)

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/api/v1/documents/" + docID.String(), http.StatusOK},
		{http.MethodGet, "/api/v1/documents/not-a-uuid/audit", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, http.NoBody))
		assert.Equal(t, tt.want, w.Code, tt.path)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "docintake_http_requests_total")
}
