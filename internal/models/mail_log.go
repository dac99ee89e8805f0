package models

import "time"

// MailLog records a notification email attempt for auditing.
type MailLog struct {
	ID         int       `json:"id"`
	Recipients []string  `json:"recipients"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
