package polls

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/dreamware/pollshard/internal/storage"
)

func decodeUser(row storage.Row) User {
	u := User{
		ID:    row.String("id"),
		Name:  row.String("name"),
		Email: row.String("email"),
	}
	u.CreatedAt, _ = row.Time("created_at")
	return u
}

func decodePoll(row storage.Row) (Poll, error) {
	p := Poll{
		ID:        row.String("id"),
		CreatorID: row.String("creator_id"),
		Question:  row.String("question"),
		IsActive:  row.Bool("is_active"),
	}
	if err := json.Unmarshal([]byte(row.String("options")), &p.Options); err != nil {
		return Poll{}, errors.Wrapf(err, "poll %s: decode options", p.ID)
	}
	p.CreatedAt, _ = row.Time("created_at")
	if t, ok := row.Time("closed_at"); ok {
		p.ClosedAt = &t
	}
	return p, nil
}

func decodePolls(rows []storage.Row) ([]Poll, error) {
	polls := make([]Poll, 0, len(rows))
	for _, row := range rows {
		p, err := decodePoll(row)
		if err != nil {
			return nil, err
		}
		polls = append(polls, p)
	}
	return polls, nil
}

func decodeVote(row storage.Row) Vote {
	v := Vote{
		ID:     row.String("id"),
		PollID: row.String("poll_id"),
		UserID: row.String("user_id"),
	}
	idx, _ := row.Int64("option_index")
	v.OptionIndex = int(idx)
	v.Timestamp, _ = row.Time("timestamp")
	return v
}
