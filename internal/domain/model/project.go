package model

import "time"

// Project mirrors a GitHub-backed project owned and synchronized by the
// backend. The client only displays projects and may toggle display metadata
// through the admin update endpoint.
type Project struct {
	ID           int64     `json:"id"`
	Owner        string    `json:"owner"`
	Repo         string    `json:"repo"`
	FullName     string    `json:"fullName"` // "owner/repo", computed by the backend.
	DisplayName  string    `json:"displayName"`
	Description  string    `json:"description,omitempty"`
	IsActive     bool      `json:"isActive"`
	LastSyncedAt time.Time `json:"lastSyncedAt"`
	RequestCount int       `json:"requestCount"` // Denormalized by the backend.
}

// UpdateProject is the partial-update payload for project display metadata.
// Nil fields are omitted from the wire body and left unchanged.
type UpdateProject struct {
	DisplayName *string `json:"displayName,omitempty"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}
