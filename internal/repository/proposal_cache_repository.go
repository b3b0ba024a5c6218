package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/sma-uctp-engine/internal/dto"
)

const proposalKeyPrefix = "uctp:proposal:"

// ProposalCacheRepository mirrors generated proposals into Redis so they
// survive process restarts for the duration of their TTL.
type ProposalCacheRepository struct {
	client *redis.Client
}

// NewProposalCacheRepository constructs the cache repository.
func NewProposalCacheRepository(client *redis.Client) *ProposalCacheRepository {
	return &ProposalCacheRepository{client: client}
}

// Save stores the proposal under its id with the given TTL.
func (r *ProposalCacheRepository) Save(ctx context.Context, proposal *dto.GenerateTimetableResponse, ttl time.Duration) error {
	payload, err := json.Marshal(proposal)
	if err != nil {
		return fmt.Errorf("marshal proposal: %w", err)
	}
	if err := r.client.Set(ctx, proposalKeyPrefix+proposal.ProposalID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("cache proposal: %w", err)
	}
	return nil
}

// Get loads a proposal by id. A missing key returns (nil, nil).
func (r *ProposalCacheRepository) Get(ctx context.Context, id string) (*dto.GenerateTimetableResponse, error) {
	payload, err := r.client.Get(ctx, proposalKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cached proposal: %w", err)
	}
	var proposal dto.GenerateTimetableResponse
	if err := json.Unmarshal(payload, &proposal); err != nil {
		return nil, fmt.Errorf("unmarshal cached proposal: %w", err)
	}
	return &proposal, nil
}

// Delete drops a cached proposal.
func (r *ProposalCacheRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, proposalKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete cached proposal: %w", err)
	}
	return nil
}
