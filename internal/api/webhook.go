package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/igoorng/webhook/internal/ingest"
	apperrors "github.com/igoorng/webhook/pkg/errors"
)

// ReceiveWebhook godoc
// @Summary      Receive a webhook delivery
// @Description  Verifies, stores and broadcasts an inbound webhook. Bodies that are not valid JSON are stored as errors.
// @Tags         webhook
// @Accept       json
// @Produce      json
// @Param        X-Hub-Signature-256  header    string  false  "sha256=<hex HMAC of the body>"
// @Param        X-Event-Type         header    string  false  "Event type used by the event filter"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]interface{}
// @Failure      413  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /webhook [post]
func (h *Handler) ReceiveWebhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, apperrors.ToErrorResponse(apperrors.ErrPayloadTooLarge))
			return
		}
		h.HandleError(c, apperrors.ErrValidation.WithMessage("failed to read request body").WithCause(err))
		return
	}

	result := h.ingester.Ingest(c.Request.Context(), ingest.Request{
		Body:     body,
		Header:   c.Request.Header,
		SourceIP: c.ClientIP(),
	})

	switch result.Outcome {
	case ingest.OutcomeDisabled:
		c.JSON(http.StatusForbidden, apperrors.ToErrorResponse(apperrors.ErrWebhookDisabled))
	case ingest.OutcomeInvalidSignature:
		c.JSON(http.StatusUnauthorized, apperrors.ToErrorResponse(apperrors.ErrInvalidSignature))
	case ingest.OutcomeFiltered:
		c.JSON(http.StatusOK, gin.H{"message": "Event filtered"})
	case ingest.OutcomeParseError:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   apperrors.ErrParse.Message,
			"details": result.Err.Error(),
			"id":      result.Message.ID,
		})
	case ingest.OutcomeStorageFailed:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to store webhook",
			"id":    result.Message.ID,
		})
	default:
		c.JSON(http.StatusOK, gin.H{
			"message": "Webhook received successfully",
			"id":      result.Message.ID,
		})
	}
}
