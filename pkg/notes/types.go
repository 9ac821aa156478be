package notes

import "time"

// Note is a free-form note written by a member of the estate
type Note struct {
	ID        string    `json:"id"`
	EstateID  string    `json:"estateId"`
	AuthorID  string    `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateRequest is the body for creating a note
type CreateRequest struct {
	EstateID string `json:"estateId"`
	Body     string `json:"body"`
}

// UpdateRequest is the body for updating a note
type UpdateRequest struct {
	Body *string `json:"body"`
}
