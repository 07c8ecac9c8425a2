package model

import "time"

// Account is a locally cached authenticated identity. The panel supports
// exactly one active account at a time by convention; the first cached
// account is treated as the session.
type Account struct {
	ID        string    // Subject identifier from the identity provider.
	Name      string    // Display name, decoded from ID token claims.
	Email     string
	UpdatedAt time.Time
}

// IssueStatus is the live state of a linked external issue, fetched directly
// from the project's GitHub repository for display on the request detail view.
type IssueStatus struct {
	Number  int
	Title   string
	State   string // "open" or "closed" as reported by GitHub.
	HTMLURL string
}
