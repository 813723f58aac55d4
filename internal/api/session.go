package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/igoorng/webhook/pkg/errors"
)

type loginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// Login godoc
// @Summary      Open a dashboard session
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]interface{}
// @Router       /login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.HandleError(c, errors.ErrValidation.WithMessage("username and password are required").WithCause(err))
		return
	}

	token, err := h.gate.Login(req.Username, req.Password)
	if err != nil {
		h.Logger.WarnwCtx(c.Request.Context(), "Login failed", "username", req.Username, "source_ip", c.ClientIP())
		c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
		return
	}

	h.gate.SetCookie(c, token)
	c.JSON(http.StatusOK, gin.H{"message": "Logged in"})
}

// Logout godoc
// @Summary      Close the dashboard session
// @Tags         auth
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /logout [post]
func (h *Handler) Logout(c *gin.Context) {
	if token := h.gate.Token(c); token != "" {
		h.gate.Logout(token)
	}
	h.gate.ClearCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
