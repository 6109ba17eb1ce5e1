package polls

import "time"

// User is a poll participant.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Poll is a question with an ordered list of options.
type Poll struct {
	ID        string     `json:"id"`
	CreatorID string     `json:"creatorId"`
	Question  string     `json:"question"`
	Options   []string   `json:"options"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	ClosedAt  *time.Time `json:"closedAt"`
}

// Vote is one user's choice on one poll. OptionIndex is 0-based.
type Vote struct {
	ID          string    `json:"id"`
	PollID      string    `json:"pollId"`
	UserID      string    `json:"userId"`
	OptionIndex int       `json:"optionIndex"`
	Timestamp   time.Time `json:"timestamp"`
}

// PollResults is the per-option tally of a poll. Votes[i] counts Options[i].
type PollResults struct {
	PollID     string   `json:"pollId"`
	Question   string   `json:"question"`
	Options    []string `json:"options"`
	Votes      []int    `json:"votes"`
	TotalVotes int      `json:"totalVotes"`
	IsActive   bool     `json:"isActive"`
}
