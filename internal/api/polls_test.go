package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/pollshard/internal/polls"
)

func (e *testEnv) createUser(t *testing.T, name string) polls.User {
	t.Helper()
	var u polls.User
	resp := e.do(t, http.MethodPost, "/users", map[string]string{"name": name, "email": name + "@example.com"}, &u)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return u
}

func (e *testEnv) createPoll(t *testing.T, creatorID string, options ...string) polls.Poll {
	t.Helper()
	var p polls.Poll
	resp := e.do(t, http.MethodPost, "/polls", map[string]any{
		"creatorId": creatorID,
		"question":  "Favourite colour?",
		"options":   options,
	}, &p)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return p
}

func TestPollLifecycle(t *testing.T) {
	env := newTestEnv(t, 3)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	var got polls.User
	resp := env.do(t, http.MethodGet, "/users/"+alice.ID, nil, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, alice.Email, got.Email)

	p := env.createPoll(t, alice.ID, "red", "blue")
	assert.True(t, p.IsActive)
	assert.Nil(t, p.ClosedAt)

	var vote polls.Vote
	resp = env.do(t, http.MethodPost, "/polls/"+p.ID+"/votes", map[string]any{"userId": bob.ID, "optionIndex": 0}, &vote)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, p.ID, vote.PollID)
	assert.Equal(t, 0, vote.OptionIndex)

	var results polls.PollResults
	resp = env.do(t, http.MethodGet, "/polls/"+p.ID+"/results", nil, &results)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []int{1, 0}, results.Votes)
	assert.Equal(t, 1, results.TotalVotes)
	assert.True(t, results.IsActive)

	var closed polls.Poll
	resp = env.do(t, http.MethodPut, "/polls/"+p.ID+"/close", map[string]string{"userId": alice.ID}, &closed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, closed.IsActive)
	assert.NotNil(t, closed.ClosedAt)

	var apiErr apiError
	resp = env.do(t, http.MethodPut, "/polls/"+p.ID+"/close", map[string]string{"userId": alice.ID}, &apiErr)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Poll is already closed", apiErr.Error)

	resp = env.do(t, http.MethodPost, "/polls/"+p.ID+"/votes", map[string]any{"userId": bob.ID, "optionIndex": 1}, &apiErr)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Poll is closed", apiErr.Error)

	var list []polls.Poll
	resp = env.do(t, http.MethodGet, "/polls", nil, &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)

	resp = env.do(t, http.MethodGet, "/users/"+alice.ID+"/polls", nil, &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, list, 1)

	var votes []polls.Vote
	resp = env.do(t, http.MethodGet, "/users/"+bob.ID+"/votes", nil, &votes)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, votes, 1)
	assert.Equal(t, vote.ID, votes[0].ID)
}

func TestPollErrorMapping(t *testing.T) {
	env := newTestEnv(t, 2)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	p := env.createPoll(t, alice.ID, "yes", "no")

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantErr    string
	}{
		{"missing user fields", http.MethodPost, "/users", map[string]string{"name": "x"}, http.StatusBadRequest, "Name and email are required"},
		{"malformed user body", http.MethodPost, "/users", `{`, http.StatusBadRequest, msgBadBody},
		{"unknown user", http.MethodGet, "/users/user_0_missing", nil, http.StatusNotFound, "User not found"},
		{"unknown user polls", http.MethodGet, "/users/user_0_missing/polls", nil, http.StatusNotFound, "User not found"},
		{"unknown user votes", http.MethodGet, "/users/user_0_missing/votes", nil, http.StatusNotFound, "User not found"},
		{"one option", http.MethodPost, "/polls", map[string]any{"creatorId": alice.ID, "question": "Q?", "options": []string{"a"}}, http.StatusBadRequest, "Creator ID, question, and at least 2 options are required"},
		{"unknown creator", http.MethodPost, "/polls", map[string]any{"creatorId": "user_0_missing", "question": "Q?", "options": []string{"a", "b"}}, http.StatusNotFound, "Creator not found"},
		{"unknown poll", http.MethodGet, "/polls/poll_0_missing", nil, http.StatusNotFound, "Poll not found"},
		{"unknown poll results", http.MethodGet, "/polls/poll_0_missing/results", nil, http.StatusNotFound, "Poll not found"},
		{"close without user", http.MethodPut, "/polls/" + p.ID + "/close", map[string]string{}, http.StatusBadRequest, "User ID is required"},
		{"close by non-creator", http.MethodPut, "/polls/" + p.ID + "/close", map[string]string{"userId": bob.ID}, http.StatusForbidden, "Only the poll creator can close the poll"},
		{"vote without index", http.MethodPost, "/polls/" + p.ID + "/votes", map[string]string{"userId": bob.ID}, http.StatusBadRequest, "User ID and option index are required"},
		{"vote out of range", http.MethodPost, "/polls/" + p.ID + "/votes", map[string]any{"userId": bob.ID, "optionIndex": 2}, http.StatusBadRequest, "Invalid option index"},
		{"vote negative", http.MethodPost, "/polls/" + p.ID + "/votes", map[string]any{"userId": bob.ID, "optionIndex": -1}, http.StatusBadRequest, "Invalid option index"},
		{"vote unknown user", http.MethodPost, "/polls/" + p.ID + "/votes", map[string]any{"userId": "user_0_missing", "optionIndex": 0}, http.StatusNotFound, "User not found"},
		{"vote on unknown poll", http.MethodPost, "/polls/poll_0_missing/votes", map[string]any{"userId": bob.ID, "optionIndex": 0}, http.StatusNotFound, "Poll not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body apiError
			resp := env.do(t, tt.method, tt.path, tt.body, &body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantErr, body.Error)
		})
	}

	var results polls.PollResults
	env.do(t, http.MethodGet, "/polls/"+p.ID+"/results", nil, &results)
	assert.Zero(t, results.TotalVotes)
	assert.True(t, results.IsActive)
}

func TestEmptyListsAreArrays(t *testing.T) {
	env := newTestEnv(t, 2)
	alice := env.createUser(t, "alice")

	for _, path := range []string{"/polls", "/users/" + alice.ID + "/polls", "/users/" + alice.ID + "/votes"} {
		var raw []any
		resp := env.do(t, http.MethodGet, path, nil, &raw)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotNil(t, raw, path)
		assert.Empty(t, raw, path)
	}
}

func TestInternalErrorsHideCause(t *testing.T) {
	env := newTestEnv(t, 2)
	for _, cfg := range env.shards {
		require.NoError(t, env.coord.Executor().Registry().Close(cfg))
	}

	var body apiError
	resp := env.do(t, http.MethodPost, "/users", map[string]string{"name": "a", "email": "a@x"}, &body)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to create user", body.Error)
}
