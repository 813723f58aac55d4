package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/igoorng/webhook/internal/settings"
	"github.com/igoorng/webhook/pkg/errors"
)

// GetSettings godoc
// @Summary      Current webhook settings
// @Tags         settings
// @Produce      json
// @Success      200  {object}  settings.Settings
// @Router       /api/settings [get]
func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Get())
}

// UpdateSettings godoc
// @Summary      Update webhook settings
// @Description  Partial update. Omitted fields keep their current value.
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        settings  body      settings.Update  true  "Fields to change"
// @Success      200  {object}  settings.Settings
// @Failure      400  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /api/settings [put]
func (h *Handler) UpdateSettings(c *gin.Context) {
	var update settings.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		h.HandleError(c, errors.ErrValidation.WithMessage("invalid settings body").WithCause(err))
		return
	}

	updated, err := h.settings.Apply(c.Request.Context(), update)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Logger.InfowCtx(c.Request.Context(), "Settings updated",
		"enabled", updated.Enabled,
		"event_filter", updated.EventFilter,
	)
	c.JSON(http.StatusOK, updated)
}
