package model

import "time"

// Notification is a record of an arrival notification shown to the user.
type Notification struct {
	// ID is the unique identifier of the notification handle.
	ID string `json:"id"`

	// Folder is the mailbox the messages arrived in.
	Folder string `json:"folder"`

	// UIDs lists the unread messages the notification covers.
	UIDs []uint32 `json:"uids"`

	Title string `json:"title"`
	Body  string `json:"body"`

	// CreatedAt is when the notification was raised.
	CreatedAt time.Time `json:"created_at"`

	// ClosedAt is set once the notification has been dismissed, clicked
	// or expired.
	ClosedAt *time.Time `json:"closed_at,omitempty"`
}
