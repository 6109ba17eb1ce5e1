package storage

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// QueryRequest is one parameterized statement. The query text is opaque to the
// middleware apart from its leading keyword.
type QueryRequest struct {
	Query    string `json:"query"`
	Params   []any  `json:"params,omitempty"`
	ShardKey string `json:"shardKey,omitempty"`
}

// Validate checks the request is structurally usable: non-empty query text
// and scalar parameters only.
func (q QueryRequest) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return ErrEmptyQuery
	}
	for i, p := range q.Params {
		if !isScalar(p) {
			return fmt.Errorf("%w: parameter %d has type %T", ErrInvalidParam, i, p)
		}
	}
	return nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, bool, string, []byte, time.Time,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

var returningClause = regexp.MustCompile(`(?i)\bRETURNING\b`)

// returnsRows reports whether the statement produces a result set.
func (q QueryRequest) returnsRows() bool {
	text := skipPreamble(q.Query)
	end := strings.IndexFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if end >= 0 {
		text = text[:end]
	}
	switch strings.ToUpper(text) {
	case "SELECT", "WITH", "SHOW", "PRAGMA", "EXPLAIN", "DESCRIBE", "DESC", "VALUES", "TABLE":
		return true
	case "INSERT", "REPLACE", "UPDATE", "DELETE":
		return returningClause.MatchString(q.Query)
	}
	return false
}

// skipPreamble drops whitespace, opening parentheses and comments that come
// before the statement's first keyword.
func skipPreamble(s string) string {
	for {
		s = strings.TrimLeftFunc(s, func(r rune) bool {
			return unicode.IsSpace(r) || r == '('
		})
		switch {
		case strings.HasPrefix(s, "/*"):
			end := strings.Index(s[2:], "*/")
			if end < 0 {
				return ""
			}
			s = s[2+end+2:]
		case strings.HasPrefix(s, "--"), strings.HasPrefix(s, "#"):
			end := strings.IndexByte(s, '\n')
			if end < 0 {
				return ""
			}
			s = s[end+1:]
		default:
			return s
		}
	}
}

// QueryResult is the uniform envelope returned by every storage operation.
// A failed query is a QueryResult with Success false, never a Go error.
type QueryResult struct {
	Success bool `json:"success"`

	// Rows is non-nil for statements that return a result set, and is then
	// always encoded, as [] when nothing matched.
	Rows []Row `json:"data,omitempty"`

	// RowsAffected and LastInsertID are set for statements without a result set.
	RowsAffected int64 `json:"rowsAffected,omitempty"`
	LastInsertID int64 `json:"lastInsertId,omitempty"`

	Error   string `json:"error,omitempty"`
	ShardID string `json:"shardId"`
}

// MarshalJSON encodes Rows as "data" whenever the statement returned a result
// set, so an empty match is distinguishable from a statement without one.
func (r QueryResult) MarshalJSON() ([]byte, error) {
	type plain QueryResult
	if r.Rows == nil {
		return json.Marshal(plain(r))
	}
	return json.Marshal(struct {
		plain
		Data []Row `json:"data"`
	}{plain(r), r.Rows})
}

// Failed builds a failed result for shardID.
func Failed(shardID, msg string) QueryResult {
	return QueryResult{Success: false, Error: msg, ShardID: shardID}
}

// Merge concatenates the rows of every successful result, skipping failures.
func Merge(results []QueryResult) []Row {
	var rows []Row
	for _, r := range results {
		if r.Success {
			rows = append(rows, r.Rows...)
		}
	}
	return rows
}
