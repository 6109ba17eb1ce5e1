package api

import (
	"net/http"
)

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, msgBadBody)
		return
	}
	u, err := s.polls.CreateUser(r.Context(), body.Name, body.Email)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.polls.GetUser(r.Context(), r.PathValue("userId"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleGetUserPolls(w http.ResponseWriter, r *http.Request) {
	ps, err := s.polls.GetUserPolls(r.Context(), r.PathValue("userId"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(ps))
}

func (s *Server) handleGetUserVotes(w http.ResponseWriter, r *http.Request) {
	vs, err := s.polls.GetUserVotes(r.Context(), r.PathValue("userId"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(vs))
}

func (s *Server) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CreatorID string   `json:"creatorId"`
		Question  string   `json:"question"`
		Options   []string `json:"options"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, msgBadBody)
		return
	}
	p, err := s.polls.CreatePoll(r.Context(), body.CreatorID, body.Question, body.Options)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleListPolls(w http.ResponseWriter, r *http.Request) {
	ps, err := s.polls.GetAllPolls(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(ps))
}

func (s *Server) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	p, err := s.polls.GetPoll(r.Context(), r.PathValue("pollId"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleClosePoll(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"userId"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, msgBadBody)
		return
	}
	p, err := s.polls.ClosePoll(r.Context(), r.PathValue("pollId"), body.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OptionIndex *int   `json:"optionIndex"`
		UserID      string `json:"userId"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, msgBadBody)
		return
	}
	if body.UserID == "" || body.OptionIndex == nil {
		writeError(w, http.StatusBadRequest, "User ID and option index are required")
		return
	}
	v, err := s.polls.CastVote(r.Context(), r.PathValue("pollId"), body.UserID, *body.OptionIndex)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handlePollResults(w http.ResponseWriter, r *http.Request) {
	res, err := s.polls.GetPollResults(r.Context(), r.PathValue("pollId"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// nonNil makes empty lists encode as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
