package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docintake/internal/service"
)

// DocumentHandler handles document read views and reprocessing.
type DocumentHandler struct {
	documentService service.DocumentService
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// GetByID handles GET /api/v1/documents/:id
func (h *DocumentHandler) GetByID(c *gin.Context) {
	docID, ok := parseDocumentID(c)
	if !ok {
		return
	}
	doc, err := h.documentService.GetByID(c.Request.Context(), docID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, doc)
}

// ListExceptions handles GET /api/v1/documents/:id/exceptions
func (h *DocumentHandler) ListExceptions(c *gin.Context) {
	docID, ok := parseDocumentID(c)
	if !ok {
		return
	}
	exceptions, err := h.documentService.ListExceptions(c.Request.Context(), docID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, exceptions)
}

// ListAudit handles GET /api/v1/documents/:id/audit
func (h *DocumentHandler) ListAudit(c *gin.Context) {
	docID, ok := parseDocumentID(c)
	if !ok {
		return
	}
	entries, err := h.documentService.ListAudit(c.Request.Context(), docID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, entries)
}

// Reprocess handles POST /api/v1/documents/:id/reprocess?force_semantic=true
func (h *DocumentHandler) Reprocess(c *gin.Context) {
	docID, ok := parseDocumentID(c)
	if !ok {
		return
	}

	force := false
	if raw := c.Query("force_semantic"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "force_semantic must be a boolean")
			return
		}
		force = v
	}

	doc, err := h.documentService.Reprocess(c.Request.Context(), docID, force, c.GetHeader("X-Actor"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondAccepted(c, doc)
}

func parseDocumentID(c *gin.Context) (uuid.UUID, bool) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid document ID")
		return uuid.Nil, false
	}
	return docID, true
}
