package handlers

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-turf-booking/internal/services"
)

// documentCSP stops a served document from running script or loading
// anything, even when opened directly.
const documentCSP = "default-src 'none'; img-src 'self'; style-src 'unsafe-inline'; sandbox"

// GetDocument godoc
// @ID          getDocument
// @Summary     Download an uploaded document
// @Description Streams a document stored by verifyAndSave. Images and PDFs are served inline under a sandboxing CSP; anything else is a download.
// @Tags        Documents
// @Produce     octet-stream
//
// @Param       id  path  string  true  "Document ID (UUID)"  format(uuid)
//
// @Success     200  {file}    file
// @Failure     404  {object}  handlers.ErrorResponse "Document not found"
// @Failure     503  {object}  handlers.ErrorResponse "Storage unavailable"
// @Router      /documents/{id} [get]
func (h *Handlers) GetDocument(c *gin.Context) {
	doc, err := h.docs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ct, disposition := doc.ContentType, "inline"
	if !services.InlineDocumentType(ct) {
		ct, disposition = "application/octet-stream", "attachment"
	}
	if cd := mime.FormatMediaType(disposition, map[string]string{"filename": doc.Name}); cd != "" {
		c.Header("Content-Disposition", cd)
	}
	c.Header("Content-Security-Policy", documentCSP)
	c.Data(http.StatusOK, ct, doc.Data)
}
