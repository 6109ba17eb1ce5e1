package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/pollshard/internal/coordinator"
	"github.com/dreamware/pollshard/internal/polls"
)

// Version is reported by the service banner.
const Version = "1.0.0"

// Server serves the middleware's HTTP surface.
type Server struct {
	coord  *coordinator.Coordinator
	polls  *polls.Service
	logger *zap.Logger
	now    func() time.Time
}

// New creates a server over coord and svc. A nil logger disables logging.
func New(coord *coordinator.Coordinator, svc *polls.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		coord:  coord,
		polls:  svc,
		logger: logger,
		now:    time.Now,
	}
}

// Handler returns the routed handler wrapped in request-ID and access-log
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleBanner)
	mux.HandleFunc("GET /health", s.handleHealth)

	// Raw query routing
	mux.HandleFunc("POST /query/all", s.handleQueryAll)
	mux.HandleFunc("POST /query/shard/{shardIndex}", s.handleQueryShard)
	mux.HandleFunc("POST /query/{shardKey}", s.handleQuery)
	mux.HandleFunc("GET /shard-info/{key}", s.handleShardInfo)

	// Users
	mux.HandleFunc("POST /users", s.handleCreateUser)
	mux.HandleFunc("GET /users/{userId}", s.handleGetUser)
	mux.HandleFunc("GET /users/{userId}/polls", s.handleGetUserPolls)
	mux.HandleFunc("GET /users/{userId}/votes", s.handleGetUserVotes)

	// Polls and votes
	mux.HandleFunc("POST /polls", s.handleCreatePoll)
	mux.HandleFunc("GET /polls", s.handleListPolls)
	mux.HandleFunc("GET /polls/{pollId}", s.handleGetPoll)
	mux.HandleFunc("PUT /polls/{pollId}/close", s.handleClosePoll)
	mux.HandleFunc("POST /polls/{pollId}/votes", s.handleCastVote)
	mux.HandleFunc("GET /polls/{pollId}/results", s.handlePollResults)

	mux.HandleFunc("/", s.handleNotFound)

	return s.withRequestID(s.withAccessLog(mux))
}

// NewHTTPServer returns an http.Server for addr serving s.Handler.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          zap.NewStdLog(s.logger.Named("http")),
	}
}

func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Message   string    `json:"message"`
		Version   string    `json:"version"`
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
		Shards    int       `json:"shards"`
	}{
		Message:   "Polling System Database Middleware",
		Version:   Version,
		Status:    coordinator.StatusHealthy,
		Shards:    s.coord.Router().ShardCount(),
		Timestamp: s.now().UTC(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.coord.Health(r.Context())
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Endpoint not found")
}
