package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// ListMessages godoc
// @Summary      List stored messages
// @Description  Returns one page of messages, newest first. With archived=true archived shards are merged in.
// @Tags         messages
// @Produce      json
// @Param        page      query     int     false  "Page number (1-based)"
// @Param        archived  query     string  false  "Include archived messages"
// @Success      200  {object}  pagination.Page
// @Failure      401  {object}  map[string]interface{}
// @Router       /api/messages [get]
func (h *Handler) ListMessages(c *gin.Context) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	includeArchived := strings.EqualFold(c.Query("archived"), "true")

	c.JSON(http.StatusOK, h.pager.GetPage(page, 0, includeArchived))
}

// Stats godoc
// @Summary      Message counters
// @Tags         messages
// @Produce      json
// @Success      200  {object}  store.Stats
// @Failure      401  {object}  map[string]interface{}
// @Router       /api/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.messages.Stats())
}

// ListArchives godoc
// @Summary      List archive shards
// @Tags         messages
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/archives [get]
func (h *Handler) ListArchives(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"archives": h.messages.Archives()})
}

// ClearMessages godoc
// @Summary      Clear active messages
// @Description  Empties the active set. Archives are untouched and ids are never reused.
// @Tags         messages
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /api/clear_messages [post]
func (h *Handler) ClearMessages(c *gin.Context) {
	if err := h.messages.Clear(c.Request.Context()); err != nil {
		h.Logger.ErrorwCtx(c.Request.Context(), "Failed to clear messages", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear messages"})
		return
	}

	h.Logger.InfowCtx(c.Request.Context(), "Messages cleared")
	c.JSON(http.StatusOK, gin.H{"message": "Messages cleared"})
}
