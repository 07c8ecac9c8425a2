package model

import "time"

// DevRequest is a tracked development request (bug, feature, enhancement, or
// question) scoped to a GitHub-backed project. All instances are owned by the
// backend; the client holds request-scoped copies with no cross-navigation
// caching guarantee.
type DevRequest struct {
	ID               int64         `json:"id"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	Type             RequestType   `json:"requestType"`
	Priority         Priority      `json:"priority"`
	Status           RequestStatus `json:"status"`
	ReproSteps       string        `json:"reproSteps,omitempty"`
	ExpectedBehavior string        `json:"expectedBehavior,omitempty"`
	ActualBehavior   string        `json:"actualBehavior,omitempty"`
	SubmitterName    string        `json:"submitterName"`
	SubmitterEmail   string        `json:"submitterEmail"`
	ProjectID        int64         `json:"projectId"`
	ProjectName      string        `json:"projectName"` // Denormalized by the backend.
	LinkedIssue      *IssueRef     `json:"linkedIssue,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
	Comments         []Comment     `json:"comments"`
	Attachments      []Attachment  `json:"attachments"`
}

// IssueRef links a request to an issue in the project's external tracker.
type IssueRef struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
}

// CreateRequest is the payload for submitting a new development request.
type CreateRequest struct {
	ProjectID        int64       `json:"projectId"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	Type             RequestType `json:"requestType"`
	Priority         Priority    `json:"priority"`
	ReproSteps       string      `json:"reproSteps,omitempty"`
	ExpectedBehavior string      `json:"expectedBehavior,omitempty"`
	ActualBehavior   string      `json:"actualBehavior,omitempty"`
}

// UpdateRequest is the partial-update payload for an existing request.
// Nil fields are omitted from the wire body and left unchanged by the backend.
type UpdateRequest struct {
	Title            *string        `json:"title,omitempty"`
	Description      *string        `json:"description,omitempty"`
	Type             *RequestType   `json:"requestType,omitempty"`
	Priority         *Priority      `json:"priority,omitempty"`
	Status           *RequestStatus `json:"status,omitempty"`
	ReproSteps       *string        `json:"reproSteps,omitempty"`
	ExpectedBehavior *string        `json:"expectedBehavior,omitempty"`
	ActualBehavior   *string        `json:"actualBehavior,omitempty"`
}

// RequestFilter narrows the request list. Zero values mean "no filter".
type RequestFilter struct {
	Status   RequestStatus
	Type     RequestType
	Priority Priority
	Search   string
}
