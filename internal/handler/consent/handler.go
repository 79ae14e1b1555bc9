package consent

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicore/phi-gate/internal/handler"
	"github.com/clinicore/phi-gate/internal/middleware"
	"github.com/clinicore/phi-gate/internal/model"
	"github.com/clinicore/phi-gate/internal/service/consent"
)

type Handler struct {
	svc *consent.Service
}

func NewHandler(svc *consent.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMW *middleware.AuthMiddleware) {
	grp := r.Group("/consents", authMW.RequireSession())
	{
		grp.POST("", h.Grant)
		grp.POST("/revoke", h.Revoke)
		grp.GET("/check", h.Check)
		grp.GET("/:patientID/history", h.History)
	}
}

func (h *Handler) Grant(c *gin.Context) {
	var req model.GrantConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	grantorID := c.MustGet(middleware.ContextPrincipalID).(uuid.UUID)
	record, err := h.svc.Grant(c.Request.Context(), grantorID, &req)
	if err != nil {
		c.JSON(handler.StatusFor(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(record))
}

func (h *Handler) Revoke(c *gin.Context) {
	var req model.RevokeConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	callerID := c.MustGet(middleware.ContextPrincipalID).(uuid.UUID)
	record, err := h.svc.Revoke(c.Request.Context(), callerID, &req)
	if err != nil {
		c.JSON(handler.StatusFor(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(record))
}

func (h *Handler) Check(c *gin.Context) {
	patientID, err := uuid.Parse(c.Query("patient_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient_id"))
		return
	}

	consentType := model.ConsentType(c.Query("consent_type"))
	if consentType == "" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("missing consent_type"))
		return
	}

	check, err := h.svc.Check(c.Request.Context(), patientID, consentType)
	if err != nil {
		c.JSON(handler.StatusFor(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(check))
}

func (h *Handler) History(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("patientID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient id"))
		return
	}

	callerID := c.MustGet(middleware.ContextPrincipalID).(uuid.UUID)
	records, err := h.svc.GetHistory(c.Request.Context(), callerID, patientID)
	if err != nil {
		c.JSON(handler.StatusFor(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(records))
}
