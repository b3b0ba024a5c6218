package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-uctp-engine/internal/models"
	appErrors "github.com/noah-isme/sma-uctp-engine/pkg/errors"
)

// LLMConfig configures the LLM-backed advisor.
type LLMConfig struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// LLMService implements Service against an OpenAI-compatible chat endpoint.
// Every call is bounded by the configured timeout and every failure is
// swallowed into "no advice" by the caller.
type LLMService struct {
	llm     llms.Model
	timeout time.Duration
	logger  *zap.Logger
}

// NewLLMService builds an advisor for the given endpoint.
func NewLLMService(cfg LLMConfig, logger *zap.Logger) (*LLMService, error) {
	if cfg.BaseURL == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "advisory base URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []openai.Option{
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
	}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	} else {
		opts = append(opts, openai.WithToken("unused"))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, wrapAdvisory(err, "failed to initialise advisory client")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &LLMService{llm: llm, timeout: timeout, logger: logger}, nil
}

const phaseStrategyPrompt = `You plan a genetic search over university timetables.
Given the problem summary below, answer with a JSON array only, no prose.
Each element: {"name": string, "generations": int > 0, "swap": float, "move": float, "anneal": float, "crossover": float}.
The four operator weights of each phase must sum to roughly 1.

Problem:
%s`

const interventionPrompt = `You unblock a stagnated timetable search.
The current best candidate is listed below as sessions with ids.
Pick two sessions whose day/slot coordinates should be swapped and answer with
JSON only, no prose: {"session_a": "<id>", "session_b": "<id>"}.

Best candidate:
%s`

const tuneWeightsPrompt = `You tune soft-constraint weights for a timetable search.
Current weights: student_gaps=%.2f faculty_gaps=%.2f faculty_workload=%.2f preference_violations=%.2f.
Recent best scores, oldest first: %v.
Answer with JSON only, no prose:
{"student_gaps": float, "faculty_gaps": float, "faculty_workload": float, "preference_violations": float}.
Every weight must stay positive.`

// ProposePhaseStrategy asks the model for a phase plan.
func (s *LLMService) ProposePhaseStrategy(ctx context.Context, problemSummary string) ([]PhaseProposal, error) {
	raw, err := s.complete(ctx, fmt.Sprintf(phaseStrategyPrompt, problemSummary))
	if err != nil {
		return nil, err
	}

	var phases []PhaseProposal
	if err := json.Unmarshal([]byte(raw), &phases); err != nil {
		return nil, wrapAdvisory(err, "advisor returned malformed phase plan")
	}
	for _, p := range phases {
		if p.Generations <= 0 || p.Swap+p.Move+p.Anneal+p.Crossover <= 0 {
			return nil, appErrors.Clone(appErrors.ErrAdvisoryUnavailable, "advisor returned an unusable phase plan")
		}
	}
	return phases, nil
}

// ProposeIntervention asks the model for a targeted swap on the best
// candidate.
func (s *LLMService) ProposeIntervention(ctx context.Context, bestSummary string) (*Intervention, error) {
	raw, err := s.complete(ctx, fmt.Sprintf(interventionPrompt, bestSummary))
	if err != nil {
		return nil, err
	}

	var iv Intervention
	if err := json.Unmarshal([]byte(raw), &iv); err != nil {
		return nil, wrapAdvisory(err, "advisor returned malformed intervention")
	}
	if iv.SessionA == "" || iv.SessionB == "" || iv.SessionA == iv.SessionB {
		return nil, appErrors.Clone(appErrors.ErrAdvisoryUnavailable, "advisor returned an unusable intervention")
	}
	return &iv, nil
}

// TuneWeights asks the model for adjusted constraint weights.
func (s *LLMService) TuneWeights(ctx context.Context, base models.ConstraintWeights, feedback []float64) (models.ConstraintWeights, error) {
	prompt := fmt.Sprintf(tuneWeightsPrompt,
		base.StudentGaps, base.FacultyGaps, base.FacultyWorkload, base.PreferenceViolations, feedback)

	raw, err := s.complete(ctx, prompt)
	if err != nil {
		return base, err
	}

	var tuned models.ConstraintWeights
	if err := json.Unmarshal([]byte(raw), &tuned); err != nil {
		return base, wrapAdvisory(err, "advisor returned malformed weights")
	}
	if tuned.StudentGaps <= 0 || tuned.FacultyGaps <= 0 || tuned.FacultyWorkload <= 0 || tuned.PreferenceViolations <= 0 {
		return base, appErrors.Clone(appErrors.ErrAdvisoryUnavailable, "advisor returned non-positive weights")
	}
	return tuned, nil
}

func (s *LLMService) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := llms.GenerateFromSinglePrompt(ctx, s.llm, prompt)
	if err != nil {
		s.logger.Warn("advisory call failed", zap.Error(err))
		return "", wrapAdvisory(err, "advisory completion failed")
	}
	return extractJSON(out), nil
}

func wrapAdvisory(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrAdvisoryUnavailable.Code, appErrors.ErrAdvisoryUnavailable.Status, message)
}

// extractJSON strips markdown fences and surrounding prose that chat models
// like to add around JSON payloads.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return s
	}
	var end int
	if s[start] == '[' {
		end = strings.LastIndex(s, "]")
	} else {
		end = strings.LastIndex(s, "}")
	}
	if end <= start {
		return s
	}
	return s[start : end+1]
}
