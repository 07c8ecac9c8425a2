package model

import "time"

// Comment is a discussion entry on a development request. Comments are
// append-only from the client's perspective; no edit or delete is exposed.
type Comment struct {
	ID          int64     `json:"id"`
	AuthorName  string    `json:"authorName"`
	AuthorEmail string    `json:"authorEmail"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
}
