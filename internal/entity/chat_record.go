package entity

import "time"

// ChatRecord mirrors the `chat_history` table.
type ChatRecord struct {
	ID        string     `json:"_id"`
	UserID    string     `json:"user_id"`
	Query     string     `json:"query"`
	Response  string     `json:"response"`
	Timestamp time.Time  `json:"timestamp"`
	Rating    *int       `json:"rating,omitempty"`
	RatedAt   *time.Time `json:"rated_at,omitempty"`
}

// FAQEntry is one question/answer pair of the knowledge corpus.
type FAQEntry struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}
