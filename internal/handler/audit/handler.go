package audit

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicore/phi-gate/internal/handler"
	"github.com/clinicore/phi-gate/internal/middleware"
	"github.com/clinicore/phi-gate/internal/model"
	"github.com/clinicore/phi-gate/internal/service/audit"
)

type Handler struct {
	svc *audit.Service
}

func NewHandler(svc *audit.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMW *middleware.AuthMiddleware) {
	grp := r.Group("/audit", authMW.RequireSession(), requireAdmin())
	{
		grp.GET("/report", h.Report)
		grp.GET("/suspicious", h.Suspicious)
	}
}

// requireAdmin limits the compliance surface to administrators
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.MustGet(middleware.ContextPrincipalRole).(model.Role)
		if role != model.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, handler.NewErrorResponse("audit access is restricted to administrators"))
			return
		}
		c.Next()
	}
}

func (h *Handler) Report(c *gin.Context) {
	start, err := parseTimeQuery(c, "start", time.Now().AddDate(0, 0, -30))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid start time"))
		return
	}
	end, err := parseTimeQuery(c, "end", time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid end time"))
		return
	}

	filters := &model.AuditReportFilters{
		ResourceType: c.Query("resource_type"),
		Action:       c.Query("action"),
	}
	if raw := c.Query("actor_id"); raw != "" {
		actorID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid actor_id"))
			return
		}
		filters.ActorID = &actorID
	}
	if raw := c.Query("patient_id"); raw != "" {
		patientID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient_id"))
			return
		}
		filters.PatientID = &patientID
	}

	report, err := h.svc.GenerateAuditReport(c.Request.Context(), start, end, filters)
	if err != nil {
		c.JSON(handler.StatusFor(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(report))
}

func (h *Handler) Suspicious(c *gin.Context) {
	report, err := h.svc.DetectSuspiciousActivity(c.Request.Context())
	if err != nil {
		c.JSON(handler.StatusFor(err), handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(report))
}

func parseTimeQuery(c *gin.Context, key string, fallback time.Time) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return time.Parse(time.RFC3339, raw)
}
