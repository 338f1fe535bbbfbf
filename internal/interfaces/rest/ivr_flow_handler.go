package rest

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nexora/backend/internal/domain/ivr"
	"github.com/nexora/backend/internal/domain/models"
	"github.com/nexora/backend/pkg/auth"
	"github.com/nexora/backend/pkg/constants"
	"github.com/nexora/backend/pkg/errors"
)

// IVRFlowService is what the handler needs from the application layer
type IVRFlowService interface {
	Get(ctx context.Context, tenantID, id string) (*models.IVRFlow, error)
	List(ctx context.Context, tenantID string) ([]models.IVRFlowSummary, error)
	Validate(flow *models.IVRFlow) ivr.Report
	Create(ctx context.Context, user auth.UserSession, flow *models.IVRFlow) (*models.IVRFlow, error)
	Replace(ctx context.Context, user auth.UserSession, id string, flow *models.IVRFlow, expectedVersion int64) (*models.IVRFlow, error)
	Delete(ctx context.Context, user auth.UserSession, id string) error
	Canvas(ctx context.Context, tenantID, id string) (ivr.Canvas, error)
	Trace(ctx context.Context, tenantID, id string, call ivr.Call) (ivr.TraceResult, error)
}

// IVRFlowHandler handles IVR flow API endpoints
type IVRFlowHandler struct {
	svc IVRFlowService
}

// NewIVRFlowHandler creates a new IVRFlowHandler
func NewIVRFlowHandler(svc IVRFlowService) *IVRFlowHandler {
	return &IVRFlowHandler{svc: svc}
}

// Register mounts the IVR routes on g. Writes additionally pass requireEditor.
func (h *IVRFlowHandler) Register(g *gin.RouterGroup, requireEditor gin.HandlerFunc) {
	ivrGroup := g.Group("/ivr")
	{
		ivrGroup.GET("/node-types", h.GetNodeTypes)

		ivrGroup.GET("/flows", h.ListFlows)
		ivrGroup.POST("/flows", requireEditor, h.CreateFlow)
		ivrGroup.POST("/flows/validate", h.ValidateFlow)
		ivrGroup.GET("/flows/:id", h.GetFlow)
		ivrGroup.PUT("/flows/:id", requireEditor, h.ReplaceFlow)
		ivrGroup.DELETE("/flows/:id", requireEditor, h.DeleteFlow)
		ivrGroup.GET("/flows/:id/canvas", h.GetCanvas)
		ivrGroup.POST("/flows/:id/trace", h.TraceCall)
	}
}

// GetNodeTypes handles GET /api/ivr/node-types
func (h *IVRFlowHandler) GetNodeTypes(c *gin.Context) {
	HandleGetEnvelope(c, constants.ResponseItems, func() (interface{}, error) {
		return ivr.Types(), nil
	})
}

// ListFlows handles GET /api/ivr/flows
func (h *IVRFlowHandler) ListFlows(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	HandleGetEnvelope(c, constants.ResponseFlows, func() (interface{}, error) {
		return h.svc.List(c.Request.Context(), user.TenantID)
	})
}

// GetFlow handles GET /api/ivr/flows/:id
// The response is the bare flow document with its version in ETag.
func (h *IVRFlowHandler) GetFlow(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	flow, err := h.svc.Get(c.Request.Context(), user.TenantID, c.Param("id"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.Header(constants.HeaderETag, etag(flow.Version))
	c.JSON(http.StatusOK, flow)
}

// CreateFlow handles POST /api/ivr/flows
func (h *IVRFlowHandler) CreateFlow(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var flow models.IVRFlow
	HandleCreateEnvelope(c, constants.ResponseData, "IVR flow created successfully", &flow, func() error {
		saved, err := h.svc.Create(c.Request.Context(), *user, &flow)
		if err != nil {
			return err
		}
		flow = *saved
		c.Header(constants.HeaderETag, etag(saved.Version))
		return nil
	})
}

// ReplaceFlow handles PUT /api/ivr/flows/:id
// The expected version comes from If-Match, or from the body when the header is absent.
func (h *IVRFlowHandler) ReplaceFlow(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id := c.Param("id")

	headerVersion, err := ifMatchVersion(c)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	var flow models.IVRFlow
	HandleUpdateEnvelope(c, constants.ResponseData, "IVR flow saved successfully", &flow, func() error {
		expected := flow.Version
		if headerVersion > 0 {
			expected = headerVersion
		}
		saved, err := h.svc.Replace(c.Request.Context(), *user, id, &flow, expected)
		if err != nil {
			return err
		}
		flow = *saved
		c.Header(constants.HeaderETag, etag(saved.Version))
		return nil
	})
}

// DeleteFlow handles DELETE /api/ivr/flows/:id
func (h *IVRFlowHandler) DeleteFlow(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	HandleDeleteEnvelope(c, "IVR flow deleted successfully", func() error {
		return h.svc.Delete(c.Request.Context(), *user, c.Param("id"))
	})
}

// ValidateFlow handles POST /api/ivr/flows/validate
// Always 200 for a well-formed body; the report says whether the draft could be saved.
func (h *IVRFlowHandler) ValidateFlow(c *gin.Context) {
	var flow models.IVRFlow
	if !BindJSON(c, &flow) {
		return
	}
	c.JSON(http.StatusOK, h.svc.Validate(&flow))
}

// GetCanvas handles GET /api/ivr/flows/:id/canvas?format=json|text|mermaid
func (h *IVRFlowHandler) GetCanvas(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	format := strings.ToLower(c.DefaultQuery(constants.ParamFormat, constants.FormatJSON))
	switch format {
	case constants.FormatJSON, constants.FormatText, constants.FormatMermaid:
	default:
		RespondAppError(c, errors.NewValidationError(constants.ParamFormat, "must be json, text or mermaid"))
		return
	}

	canvas, err := h.svc.Canvas(c.Request.Context(), user.TenantID, c.Param("id"))
	if err != nil {
		RespondAppError(c, err)
		return
	}

	switch format {
	case constants.FormatText:
		c.Data(http.StatusOK, constants.ContentTypeText, []byte(ivr.RenderText(canvas)))
	case constants.FormatMermaid:
		c.Data(http.StatusOK, constants.ContentTypeText, []byte(ivr.RenderMermaid(canvas)))
	default:
		c.JSON(http.StatusOK, canvas)
	}
}

// TraceCall handles POST /api/ivr/flows/:id/trace
// An empty body simulates a call placed now with no digits pressed.
func (h *IVRFlowHandler) TraceCall(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var call ivr.Call
	if c.Request.ContentLength != 0 {
		if !BindJSON(c, &call) {
			return
		}
	}

	result, err := h.svc.Trace(c.Request.Context(), user.TenantID, c.Param("id"), call)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
