// Package dto defines the request and response payloads of the HTTP API.
package dto

import (
	"time"

	"github.com/noah-isme/sma-uctp-engine/internal/models"
)

// WeightsPayload overrides the default soft-constraint weights.
type WeightsPayload struct {
	StudentGaps          float64 `json:"studentGaps" validate:"gt=0"`
	FacultyGaps          float64 `json:"facultyGaps" validate:"gt=0"`
	FacultyWorkload      float64 `json:"facultyWorkload" validate:"gt=0"`
	PreferenceViolations float64 `json:"preferenceViolations" validate:"gt=0"`
}

// GenerateTimetableRequest asks the engine to optimize timetables for a set of
// batches over the given week geometry.
type GenerateTimetableRequest struct {
	Days        int      `json:"days" validate:"required,min=1,max=7"`
	SlotsPerDay int      `json:"slotsPerDay" validate:"required,min=1,max=12"`
	BatchIDs    []string `json:"batchIds" validate:"required,min=1,max=64,dive,required"`

	Weights        *WeightsPayload `json:"weights,omitempty" validate:"omitempty"`
	CandidateCount int             `json:"candidateCount" validate:"omitempty,min=1,max=10"`
	PopulationSize int             `json:"populationSize" validate:"omitempty,min=4,max=500"`
	Generations    int             `json:"generations" validate:"omitempty,min=1,max=2000"`
	Seed           int64           `json:"seed,omitempty"`

	// BaselineProposalID re-optimizes from a previously generated candidate.
	BaselineProposalID string `json:"baselineProposalId,omitempty"`
	BaselineCandidate  int    `json:"baselineCandidate" validate:"omitempty,min=0,max=9"`
}

// TimetableCandidate is one returned candidate with its scored breakdown.
type TimetableCandidate struct {
	Rank        int                      `json:"rank"`
	Metrics     models.TimetableMetrics  `json:"metrics"`
	Assignments []models.ClassAssignment `json:"assignments"`
}

// GenerateTimetableResponse returns the proposal handle and its candidates.
type GenerateTimetableResponse struct {
	ProposalID  string               `json:"proposalId"`
	Candidates  []TimetableCandidate `json:"candidates"`
	RequestedAt time.Time            `json:"requestedAt"`
}

// ProposalSummary is the list view of a stored proposal.
type ProposalSummary struct {
	ProposalID  string    `json:"proposalId"`
	BatchIDs    []string  `json:"batchIds"`
	BestScore   float64   `json:"bestScore"`
	Candidates  int       `json:"candidates"`
	RequestedAt time.Time `json:"requestedAt"`
}
