package handler

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"net/http"

	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docintake/internal/middleware"
	"docintake/internal/service"
)

const webhookActor = "system"

// WebhookHandler turns storage notifications into document registrations.
type WebhookHandler struct {
	documentService service.DocumentService
	pubsubToken     string
}

// NewWebhookHandler creates a new WebhookHandler. An empty pubsubToken
// disables push token verification.
func NewWebhookHandler(documentService service.DocumentService, pubsubToken string) *WebhookHandler {
	return &WebhookHandler{documentService: documentService, pubsubToken: pubsubToken}
}

// pubsubPush is the Pub/Sub push delivery envelope.
type pubsubPush struct {
	Message struct {
		Data       string            `json:"data"`
		Attributes map[string]string `json:"attributes"`
		MessageID  string            `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// PubSub handles POST /api/v1/webhooks/pubsub
func (h *WebhookHandler) PubSub(c *gin.Context) {
	if h.pubsubToken != "" &&
		subtle.ConstantTimeCompare([]byte(c.Query("token")), []byte(h.pubsubToken)) != 1 {
		RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid push token")
		return
	}

	var push pubsubPush
	if err := c.ShouldBindJSON(&push); err != nil || push.Message.Data == "" {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "message.data is required")
		return
	}
	raw, err := base64.StdEncoding.DecodeString(push.Message.Data)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "message.data must be base64")
		return
	}
	var n service.BlobNotification
	if err := json.Unmarshal(raw, &n); err != nil || n.Name == "" {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "message.data must describe an object")
		return
	}

	middleware.LoggerFrom(c).Debug("webhookHandler.PubSub: notification received",
		zap.String("message_id", push.Message.MessageID), zap.String("blob_path", n.Name))
	h.register(c, n)
}

// CloudEvent handles POST /api/v1/webhooks/gcs for Eventarc object
// finalized events in binary or structured mode.
func (h *WebhookHandler) CloudEvent(c *gin.Context) {
	ev, err := cehttp.NewEventFromHTTPRequest(c.Request)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "request is not a CloudEvent")
		return
	}
	var n service.BlobNotification
	if err := ev.DataAs(&n); err != nil || n.Name == "" {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "event data must describe an object")
		return
	}

	middleware.LoggerFrom(c).Debug("webhookHandler.CloudEvent: event received",
		zap.String("event_id", ev.ID()), zap.String("event_type", ev.Type()), zap.String("blob_path", n.Name))
	h.register(c, n)
}

func (h *WebhookHandler) register(c *gin.Context, n service.BlobNotification) {
	result, err := h.documentService.Register(c.Request.Context(), n, webhookActor)
	if err != nil {
		HandleError(c, err)
		return
	}

	body := gin.H{"status": result.Status}
	if result.Document != nil {
		body["document_id"] = result.Document.ID
	}
	if result.Status == service.IngestCreated {
		RespondCreated(c, body)
		return
	}
	RespondOK(c, body)
}
