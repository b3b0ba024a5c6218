package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-uctp-engine/internal/dto"
	appErrors "github.com/noah-isme/sma-uctp-engine/pkg/errors"
)

type timetableServiceMock struct {
	captured  dto.GenerateTimetableRequest
	deleted   string
	getErr    error
	deleteErr error
}

func (m *timetableServiceMock) Generate(_ context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	m.captured = req
	return &dto.GenerateTimetableResponse{ProposalID: "proposal-1"}, nil
}

func (m *timetableServiceMock) GetProposal(_ context.Context, id string) (*dto.GenerateTimetableResponse, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &dto.GenerateTimetableResponse{ProposalID: id}, nil
}

func (m *timetableServiceMock) ListProposals(context.Context) ([]dto.ProposalSummary, error) {
	return []dto.ProposalSummary{{ProposalID: "proposal-1", Candidates: 2}}, nil
}

func (m *timetableServiceMock) DeleteProposal(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = id
	return nil
}

func newTestRouter(mock *timetableServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := &TimetableHandler{service: mock}
	h.Register(router.Group("/api/v1"))
	return router
}

func TestTimetableHandlerGenerate(t *testing.T) {
	mock := &timetableServiceMock{}
	router := newTestRouter(mock)

	payload := []byte(`{"days":5,"slotsPerDay":6,"batchIds":["b-1","b-2"],"candidateCount":3}`)
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/timetables/generate", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"b-1", "b-2"}, mock.captured.BatchIDs)
	assert.Equal(t, 3, mock.captured.CandidateCount)

	var envelope struct {
		Data dto.GenerateTimetableResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "proposal-1", envelope.Data.ProposalID)
}

func TestTimetableHandlerGenerateBadPayload(t *testing.T) {
	router := newTestRouter(&timetableServiceMock{})

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/timetables/generate", bytes.NewReader([]byte(`{"days":`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerGetNotFound(t *testing.T) {
	mock := &timetableServiceMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")}
	router := newTestRouter(mock)

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/timetables/proposals/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTimetableHandlerList(t *testing.T) {
	router := newTestRouter(&timetableServiceMock{})

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/timetables/proposals", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data []dto.ProposalSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "proposal-1", envelope.Data[0].ProposalID)
}

func TestTimetableHandlerDelete(t *testing.T) {
	mock := &timetableServiceMock{}
	router := newTestRouter(mock)

	req, _ := http.NewRequest(http.MethodDelete, "/api/v1/timetables/proposals/proposal-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "proposal-1", mock.deleted)
}
