package handler_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"docintake/internal/domain"
	"docintake/internal/handler"
	"docintake/internal/service"
	"docintake/mocks"
)

const objectJSON = `{"bucket":"intake","name":"inbox/bbc_march.pdf","contentType":"application/pdf","size":"2048"}`

func pubsubBody(data string) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"message": map[string]interface{}{
			"data":      base64.StdEncoding.EncodeToString([]byte(data)),
			"messageId": "123",
		},
		"subscription": "projects/p/subscriptions/intake",
	})
	return body
}

func postJSON(target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

var expectedNotification = service.BlobNotification{
	Bucket:      "intake",
	Name:        "inbox/bbc_march.pdf",
	ContentType: "application/pdf",
	Size:        2048,
}

func TestWebhookHandler_PubSub_Created(t *testing.T) {
	mockSvc := new(mocks.MockDocumentService)
	h := handler.NewWebhookHandler(mockSvc, "")
	docID := uuid.New()
	mockSvc.On("Register", mock.Anything, expectedNotification, "system").
		Return(&service.IngestResult{Status: service.IngestCreated, Document: &domain.Document{ID: docID}}, nil)

	c, w := postJSON("/api/v1/webhooks/pubsub", pubsubBody(objectJSON))
	h.PubSub(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), docID.String())
	mockSvc.AssertExpectations(t)
}

func TestWebhookHandler_PubSub_IgnoredAndExists(t *testing.T) {
	for _, status := range []string{service.IngestIgnored, service.IngestExists} {
		t.Run(status, func(t *testing.T) {
			mockSvc := new(mocks.MockDocumentService)
			h := handler.NewWebhookHandler(mockSvc, "")
			mockSvc.On("Register", mock.Anything, expectedNotification, "system").
				Return(&service.IngestResult{Status: status}, nil)

			c, w := postJSON("/api/v1/webhooks/pubsub", pubsubBody(objectJSON))
			h.PubSub(c)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), `"status":"`+status+`"`)
		})
	}
}

func TestWebhookHandler_PubSub_Token(t *testing.T) {
	mockSvc := new(mocks.MockDocumentService)
	h := handler.NewWebhookHandler(mockSvc, "s3cret")

	c, w := postJSON("/api/v1/webhooks/pubsub?token=wrong", pubsubBody(objectJSON))
	h.PubSub(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	mockSvc.On("Register", mock.Anything, expectedNotification, "system").
		Return(&service.IngestResult{Status: service.IngestExists}, nil)
	c, w = postJSON("/api/v1/webhooks/pubsub?token=s3cret", pubsubBody(objectJSON))
	h.PubSub(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookHandler_PubSub_BadEnvelope(t *testing.T) {
	mockSvc := new(mocks.MockDocumentService)
	h := handler.NewWebhookHandler(mockSvc, "")

	tests := map[string][]byte{
		"not json":         []byte("{"),
		"no data":          []byte(`{"message":{}}`),
		"not base64":       []byte(`{"message":{"data":"%%%"}}`),
		"data not object":  pubsubBody(`"hello"`),
		"missing name":     pubsubBody(`{"bucket":"intake"}`),
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			c, w := postJSON("/api/v1/webhooks/pubsub", body)
			h.PubSub(c)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	mockSvc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookHandler_PubSub_InvalidName(t *testing.T) {
	mockSvc := new(mocks.MockDocumentService)
	h := handler.NewWebhookHandler(mockSvc, "")
	mockSvc.On("Register", mock.Anything, mock.Anything, "system").Return(nil, domain.ErrInvalidInput)

	c, w := postJSON("/api/v1/webhooks/pubsub", pubsubBody(`{"bucket":"intake","name":"inbox/"}`))
	h.PubSub(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookHandler_CloudEvent_BinaryMode(t *testing.T) {
	mockSvc := new(mocks.MockDocumentService)
	h := handler.NewWebhookHandler(mockSvc, "")
	docID := uuid.New()
	mockSvc.On("Register", mock.Anything, expectedNotification, "system").
		Return(&service.IngestResult{Status: service.IngestCreated, Document: &domain.Document{ID: docID}}, nil)

	c, w := postJSON("/api/v1/webhooks/gcs", []byte(objectJSON))
	c.Request.Header.Set("ce-specversion", "1.0")
	c.Request.Header.Set("ce-id", "evt-1")
	c.Request.Header.Set("ce-source", "//storage.googleapis.com/projects/_/buckets/intake")
	c.Request.Header.Set("ce-type", "google.cloud.storage.object.v1.finalized")
	h.CloudEvent(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestWebhookHandler_CloudEvent_NotAnEvent(t *testing.T) {
	mockSvc := new(mocks.MockDocumentService)
	h := handler.NewWebhookHandler(mockSvc, "")

	c, w := postJSON("/api/v1/webhooks/gcs", []byte(objectJSON))
	h.CloudEvent(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
