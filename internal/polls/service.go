package polls

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/dreamware/pollshard/internal/shard"
	"github.com/dreamware/pollshard/internal/storage"
)

// Executor runs statements against shards. *storage.Executor satisfies it.
type Executor interface {
	Execute(ctx context.Context, cfg shard.Config, req storage.QueryRequest) storage.QueryResult
	ExecuteOnAll(ctx context.Context, cfgs []shard.Config, req storage.QueryRequest) []storage.QueryResult
}

// Service implements the polling operations over a sharded store.
type Service struct {
	router *shard.Router
	exec   Executor
	logger *zap.Logger

	now   func() time.Time
	newID func(prefix string, now time.Time) string
}

// NewService creates a service routing through router and running statements
// on exec. A nil logger disables logging.
func NewService(router *shard.Router, exec Executor, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		router: router,
		exec:   exec,
		logger: logger,
		now: func() time.Time {
			// DATETIME columns keep whole seconds on MySQL.
			return time.Now().UTC().Truncate(time.Second)
		},
		newID: NewID,
	}
}

// run executes req on the shard owning key.
func (s *Service) run(ctx context.Context, key string, req storage.QueryRequest) (storage.QueryResult, shard.Config, error) {
	cfg, err := s.router.ShardFor(key)
	if err != nil {
		return storage.QueryResult{}, shard.Config{}, internal("routing failed", err)
	}
	return s.exec.Execute(ctx, cfg, req), cfg, nil
}

// runAll executes req on every shard and concatenates the rows of the shards
// that answered. Failed shards are logged and contribute nothing.
func (s *Service) runAll(ctx context.Context, req storage.QueryRequest) []storage.Row {
	results := s.exec.ExecuteOnAll(ctx, s.router.AllShards(), req)
	for _, res := range results {
		if !res.Success {
			s.logger.Warn("shard skipped in fan-out read",
				zap.String("shard", res.ShardID),
				zap.String("error", res.Error))
		}
	}
	return storage.Merge(results)
}

func (s *Service) userExists(ctx context.Context, userID string) (bool, error) {
	res, _, err := s.run(ctx, userID, storage.QueryRequest{
		Query:  "SELECT id FROM users WHERE id = ?",
		Params: []any{userID},
	})
	if err != nil {
		return false, err
	}
	if !res.Success {
		return false, internal("failed to look up user", storageError(res))
	}
	return len(res.Rows) > 0, nil
}

// loadPoll reads a poll from its shard and returns the shard it lives on.
func (s *Service) loadPoll(ctx context.Context, pollID string) (Poll, shard.Config, error) {
	res, cfg, err := s.run(ctx, pollID, storage.QueryRequest{
		Query:  "SELECT * FROM polls WHERE id = ?",
		Params: []any{pollID},
	})
	if err != nil {
		return Poll{}, cfg, err
	}
	if !res.Success {
		return Poll{}, cfg, internal("Failed to retrieve poll", storageError(res))
	}
	if len(res.Rows) == 0 {
		return Poll{}, cfg, notFound("Poll not found")
	}
	p, err := decodePoll(res.Rows[0])
	if err != nil {
		return Poll{}, cfg, internal("Failed to retrieve poll", err)
	}
	return p, cfg, nil
}

// CreateUser stores a new user on the shard its ID routes to.
func (s *Service) CreateUser(ctx context.Context, name, email string) (*User, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" {
		return nil, validation("Name and email are required")
	}

	now := s.now()
	u := &User{ID: s.newID(userPrefix, now), Name: name, Email: email, CreatedAt: now}

	res, cfg, err := s.run(ctx, u.ID, storage.QueryRequest{
		Query:  "INSERT INTO users (id, name, email, created_at) VALUES (?, ?, ?, ?)",
		Params: []any{u.ID, u.Name, u.Email, u.CreatedAt},
	})
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, internal("Failed to create user", storageError(res))
	}

	s.logger.Info("user created", zap.String("user_id", u.ID), zap.String("shard", cfg.ID()))
	return u, nil
}

// GetUser reads a user from its shard.
func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	res, _, err := s.run(ctx, userID, storage.QueryRequest{
		Query:  "SELECT * FROM users WHERE id = ?",
		Params: []any{userID},
	})
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, internal("Failed to retrieve user", storageError(res))
	}
	if len(res.Rows) == 0 {
		return nil, notFound("User not found")
	}
	u := decodeUser(res.Rows[0])
	return &u, nil
}

// GetUserPolls returns every poll created by userID, gathered from all shards.
func (s *Service) GetUserPolls(ctx context.Context, userID string) ([]Poll, error) {
	ok, err := s.userExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("User not found")
	}

	rows := s.runAll(ctx, storage.QueryRequest{
		Query:  "SELECT * FROM polls WHERE creator_id = ?",
		Params: []any{userID},
	})
	polls, err := decodePolls(rows)
	if err != nil {
		return nil, internal("Failed to retrieve user polls", err)
	}
	return polls, nil
}

// GetUserVotes returns every vote cast by userID, gathered from all shards.
func (s *Service) GetUserVotes(ctx context.Context, userID string) ([]Vote, error) {
	ok, err := s.userExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("User not found")
	}

	rows := s.runAll(ctx, storage.QueryRequest{
		Query:  "SELECT * FROM votes WHERE user_id = ?",
		Params: []any{userID},
	})
	votes := make([]Vote, 0, len(rows))
	for _, row := range rows {
		votes = append(votes, decodeVote(row))
	}
	return votes, nil
}

// CreatePoll stores a new poll on the shard its ID routes to. The creator must
// exist and at least two non-blank options are required.
func (s *Service) CreatePoll(ctx context.Context, creatorID, question string, options []string) (*Poll, error) {
	question = strings.TrimSpace(question)
	if creatorID == "" || question == "" || len(options) < 2 {
		return nil, validation("Creator ID, question, and at least 2 options are required")
	}
	for _, opt := range options {
		if strings.TrimSpace(opt) == "" {
			return nil, validation("Poll options cannot be blank")
		}
	}

	ok, err := s.userExists(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("Creator not found")
	}

	encoded, err := json.Marshal(options)
	if err != nil {
		return nil, internal("Failed to create poll", err)
	}

	now := s.now()
	p := &Poll{
		ID:        s.newID(pollPrefix, now),
		CreatorID: creatorID,
		Question:  question,
		Options:   append([]string(nil), options...),
		IsActive:  true,
		CreatedAt: now,
	}

	res, cfg, err := s.run(ctx, p.ID, storage.QueryRequest{
		Query:  "INSERT INTO polls (id, creator_id, question, options, is_active, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		Params: []any{p.ID, p.CreatorID, p.Question, string(encoded), true, p.CreatedAt},
	})
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, internal("Failed to create poll", storageError(res))
	}

	s.logger.Info("poll created", zap.String("poll_id", p.ID), zap.String("shard", cfg.ID()))
	return p, nil
}

// GetAllPolls returns the polls of every reachable shard, newest first.
func (s *Service) GetAllPolls(ctx context.Context) ([]Poll, error) {
	rows := s.runAll(ctx, storage.QueryRequest{Query: "SELECT * FROM polls ORDER BY created_at DESC"})
	polls, err := decodePolls(rows)
	if err != nil {
		return nil, internal("Failed to retrieve polls", err)
	}
	slices.SortStableFunc(polls, func(a, b Poll) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return polls, nil
}

// GetPoll reads a poll from its shard.
func (s *Service) GetPoll(ctx context.Context, pollID string) (*Poll, error) {
	p, _, err := s.loadPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ClosePoll marks a poll inactive. Only the creator may close a poll, and a
// closed poll cannot be closed again.
//
// The read-check-write runs on the poll's shard without a transaction.
func (s *Service) ClosePoll(ctx context.Context, pollID, userID string) (*Poll, error) {
	if userID == "" {
		return nil, validation("User ID is required")
	}

	p, cfg, err := s.loadPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, validation("Poll is already closed")
	}
	if p.CreatorID != userID {
		return nil, forbidden("Only the poll creator can close the poll")
	}

	closedAt := s.now()
	res := s.exec.Execute(ctx, cfg, storage.QueryRequest{
		Query:  "UPDATE polls SET is_active = ?, closed_at = ? WHERE id = ?",
		Params: []any{false, closedAt, pollID},
	})
	if !res.Success {
		return nil, internal("Failed to close poll", storageError(res))
	}

	p.IsActive = false
	p.ClosedAt = &closedAt
	s.logger.Info("poll closed", zap.String("poll_id", pollID), zap.String("shard", cfg.ID()))
	return &p, nil
}

// CastVote records userID's choice on pollID. The vote is written to the
// poll's shard, whichever shard the voter lives on.
func (s *Service) CastVote(ctx context.Context, pollID, userID string, optionIndex int) (*Vote, error) {
	if userID == "" {
		return nil, validation("User ID and option index are required")
	}

	p, pollShard, err := s.loadPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, validation("Poll is closed")
	}
	if optionIndex < 0 || optionIndex >= len(p.Options) {
		return nil, validation("Invalid option index")
	}

	ok, err := s.userExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("User not found")
	}

	now := s.now()
	v := &Vote{
		ID:          s.newID(votePrefix, now),
		PollID:      pollID,
		UserID:      userID,
		OptionIndex: optionIndex,
		Timestamp:   now,
	}

	res := s.exec.Execute(ctx, pollShard, storage.QueryRequest{
		Query:  "INSERT INTO votes (id, poll_id, user_id, option_index, timestamp) VALUES (?, ?, ?, ?, ?)",
		Params: []any{v.ID, v.PollID, v.UserID, v.OptionIndex, v.Timestamp},
	})
	if !res.Success {
		return nil, internal("Failed to cast vote", storageError(res))
	}

	s.logger.Info("vote cast", zap.String("vote_id", v.ID), zap.String("poll_id", pollID), zap.String("shard", pollShard.ID()))
	return v, nil
}

// GetPollResults tallies a poll's votes from the poll's shard.
func (s *Service) GetPollResults(ctx context.Context, pollID string) (*PollResults, error) {
	p, cfg, err := s.loadPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}

	res := s.exec.Execute(ctx, cfg, storage.QueryRequest{
		Query:  "SELECT option_index FROM votes WHERE poll_id = ?",
		Params: []any{pollID},
	})
	if !res.Success {
		return nil, internal("Failed to retrieve poll results", storageError(res))
	}

	counts := make([]int, len(p.Options))
	for _, row := range res.Rows {
		idx, ok := row.Int64("option_index")
		if ok && idx >= 0 && idx < int64(len(counts)) {
			counts[idx]++
		}
	}

	return &PollResults{
		PollID:     p.ID,
		Question:   p.Question,
		Options:    p.Options,
		Votes:      counts,
		TotalVotes: len(res.Rows),
		IsActive:   p.IsActive,
	}, nil
}
