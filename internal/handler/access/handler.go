package access

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicore/phi-gate/internal/handler"
	"github.com/clinicore/phi-gate/internal/middleware"
	"github.com/clinicore/phi-gate/internal/model"
	"github.com/clinicore/phi-gate/internal/service/access"
)

type Handler struct {
	engine *access.Engine
}

func NewHandler(engine *access.Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMW *middleware.AuthMiddleware) {
	grp := r.Group("/access", authMW.RequireSession())
	{
		grp.POST("/check", h.Check)
		grp.POST("/enforce", h.Enforce)
	}
}

// checkRequest is the caller-supplied part of an access request; the
// requester identity always comes from the session, never the body.
type checkRequest struct {
	PatientID             uuid.UUID          `json:"patient_id" binding:"required"`
	DataCategory          model.DataCategory `json:"data_category" binding:"required,datacategory"`
	Operation             model.Operation    `json:"operation" binding:"required,oneof=READ WRITE DELETE"`
	BusinessJustification string             `json:"business_justification"`
	EmergencyOverride     bool               `json:"emergency_override"`
}

func (h *Handler) buildRequest(c *gin.Context, req *checkRequest) *model.AccessRequest {
	return &model.AccessRequest{
		RequesterID:           c.MustGet(middleware.ContextPrincipalID).(uuid.UUID),
		RequesterRole:         c.MustGet(middleware.ContextPrincipalRole).(model.Role),
		PatientID:             req.PatientID,
		DataCategory:          req.DataCategory,
		Operation:             req.Operation,
		BusinessJustification: req.BusinessJustification,
		EmergencyOverride:     req.EmergencyOverride,
	}
}

// Check evaluates the request and returns the decision either way
func (h *Handler) Check(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	decision := h.engine.CheckAccess(c.Request.Context(), h.buildRequest(c, &req))
	c.JSON(http.StatusOK, handler.NewSuccessResponse(decision))
}

// Enforce evaluates the request and fails the call on denial
func (h *Handler) Enforce(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	decision, err := h.engine.EnforceAccess(c.Request.Context(), h.buildRequest(c, &req))
	if err != nil {
		c.JSON(handler.StatusFor(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(decision))
}
