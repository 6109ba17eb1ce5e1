package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/dreamware/pollshard/internal/shard"
	"github.com/dreamware/pollshard/internal/storage"
)

// decodeQuery reads a QueryRequest body and converts JSON numbers to int64
// when integral, float64 otherwise.
func decodeQuery(r *http.Request) (storage.QueryRequest, error) {
	var req storage.QueryRequest
	if err := decodeBody(r, &req); err != nil {
		return req, err
	}
	for i, p := range req.Params {
		n, ok := p.(json.Number)
		if !ok {
			continue
		}
		if v, err := n.Int64(); err == nil {
			req.Params[i] = v
		} else if f, err := n.Float64(); err == nil {
			req.Params[i] = f
		}
	}
	return req, nil
}

// writeQueryError maps errors for requests that never reached a shard.
func (s *Server) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "Query is required")
	case errors.Is(err, storage.ErrInvalidParam), errors.Is(err, shard.ErrInvalidShardIndex):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("query routing failed",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, err := decodeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgBadBody)
		return
	}
	res, err := s.coord.Query(r.Context(), r.PathValue("shardKey"), req)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleQueryShard(w http.ResponseWriter, r *http.Request) {
	req, err := decodeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgBadBody)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	idx, err := strconv.Atoi(r.PathValue("shardIndex"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shard index")
		return
	}
	res, err := s.coord.QueryByShardIndex(r.Context(), idx, req)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleQueryAll(w http.ResponseWriter, r *http.Request) {
	req, err := decodeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgBadBody)
		return
	}
	out, err := s.coord.QueryAll(r.Context(), req)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success     bool                  `json:"success"`
		Results     []storage.QueryResult `json:"results"`
		TotalShards int                   `json:"totalShards"`
	}{Success: true, Results: out.Results, TotalShards: out.TotalShards})
}

func (s *Server) handleShardInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.coord.ShardInfo(r.PathValue("key"))
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
