package model

// RequestType classifies a development request.
type RequestType string

const (
	TypeBug         RequestType = "Bug"
	TypeFeature     RequestType = "Feature"
	TypeEnhancement RequestType = "Enhancement"
	TypeQuestion    RequestType = "Question"
)

// RequestTypes lists all valid request types in display order.
var RequestTypes = []RequestType{TypeBug, TypeFeature, TypeEnhancement, TypeQuestion}

// Valid reports whether t is one of the fixed request types.
func (t RequestType) Valid() bool {
	switch t {
	case TypeBug, TypeFeature, TypeEnhancement, TypeQuestion:
		return true
	}
	return false
}

// Priority represents the urgency of a development request.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Priorities lists all valid priorities in ascending order of urgency.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Valid reports whether p is one of the fixed priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// RequestStatus represents the workflow state of a development request.
// Transitions are owned by the backend; the client only displays the current
// status and submits requested changes.
type RequestStatus string

const (
	StatusNew        RequestStatus = "New"
	StatusTriaged    RequestStatus = "Triaged"
	StatusApproved   RequestStatus = "Approved"
	StatusInProgress RequestStatus = "InProgress"
	StatusDone       RequestStatus = "Done"
	StatusRejected   RequestStatus = "Rejected"
)

// RequestStatuses lists all statuses in workflow order, terminal states last.
var RequestStatuses = []RequestStatus{
	StatusNew, StatusTriaged, StatusApproved, StatusInProgress, StatusDone, StatusRejected,
}

// Valid reports whether s is one of the fixed statuses.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusNew, StatusTriaged, StatusApproved, StatusInProgress, StatusDone, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether s is an end state (Done or Rejected).
func (s RequestStatus) Terminal() bool {
	return s == StatusDone || s == StatusRejected
}
