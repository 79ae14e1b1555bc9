package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinicore/phi-gate/internal/handler"
	"github.com/clinicore/phi-gate/internal/middleware"
	"github.com/clinicore/phi-gate/internal/model"
	"github.com/clinicore/phi-gate/internal/service/auth"
	"github.com/clinicore/phi-gate/internal/service/session"
)

type Handler struct {
	svc      *auth.Service
	sessions *session.Service
}

func NewHandler(svc *auth.Service, sessions *session.Service) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMW *middleware.AuthMiddleware) {
	grp := r.Group("/auth")
	{
		grp.POST("/login", h.Login)
		grp.POST("/mfa/verify", h.VerifyMFA)
		grp.POST("/logout", authMW.RequireSession(), h.Logout)
	}
	r.GET("/sessions/validate", h.ValidateSession)
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	result, err := h.svc.Authenticate(c.Request.Context(), req.Email, req.Password,
		c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		c.JSON(handler.StatusFor(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) VerifyMFA(c *gin.Context) {
	var req model.MFAVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	result, err := h.svc.CompleteMFA(c.Request.Context(), req.PrincipalID, req.Code,
		c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		c.JSON(handler.StatusFor(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) Logout(c *gin.Context) {
	sessionToken := c.GetString(middleware.ContextSessionToken)
	if err := h.svc.Logout(c.Request.Context(), sessionToken); err != nil {
		c.JSON(handler.StatusFor(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse("logged out"))
}

// ValidateSession reports session liveness and the timeout warning
// without requiring the auth middleware, so clients can poll it.
func (h *Handler) ValidateSession(c *gin.Context) {
	sessionToken := c.GetHeader(middleware.HeaderSessionToken)
	if sessionToken == "" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("missing session token"))
		return
	}

	status, err := h.sessions.Validate(c.Request.Context(), sessionToken)
	if err != nil {
		c.JSON(handler.StatusFor(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(status))
}
