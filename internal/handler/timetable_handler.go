// Package handler exposes the HTTP endpoints of the optimization service.
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-uctp-engine/internal/dto"
	"github.com/noah-isme/sma-uctp-engine/internal/service"
	appErrors "github.com/noah-isme/sma-uctp-engine/pkg/errors"
	"github.com/noah-isme/sma-uctp-engine/pkg/response"
)

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	GetProposal(ctx context.Context, id string) (*dto.GenerateTimetableResponse, error)
	ListProposals(ctx context.Context) ([]dto.ProposalSummary, error)
	DeleteProposal(ctx context.Context, id string) error
}

// TimetableHandler exposes timetable generation endpoints.
type TimetableHandler struct {
	service timetableGenerator
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Register mounts the routes on the group.
func (h *TimetableHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/timetables/generate", h.Generate)
	rg.GET("/timetables/proposals", h.List)
	rg.GET("/timetables/proposals/:id", h.Get)
	rg.DELETE("/timetables/proposals/:id", h.Delete)
}

// Generate runs the optimization engine and returns a proposal with ranked
// candidates.
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generation payload"))
		return
	}
	resp, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// Get returns a stored proposal by id.
func (h *TimetableHandler) Get(c *gin.Context) {
	resp, err := h.service.GetProposal(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// List summarises the proposals currently held.
func (h *TimetableHandler) List(c *gin.Context) {
	summaries, err := h.service.ListProposals(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries)
}

// Delete drops a stored proposal.
func (h *TimetableHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteProposal(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
