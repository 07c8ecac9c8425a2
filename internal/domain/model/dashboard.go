package model

// Dashboard is a read-only aggregate projection computed by the backend.
// It has no independent lifecycle; every view navigation re-fetches it.
type Dashboard struct {
	TotalRequests int                   `json:"totalRequests"`
	ByStatus      map[RequestStatus]int `json:"byStatus"`
	ByType        map[RequestType]int   `json:"byType"`
	ByPriority    map[Priority]int      `json:"byPriority"`
	Recent        []DevRequest          `json:"recentRequests"`
}

// Consistent reports whether the per-status counts sum to the total. The
// client never repairs an inconsistent dashboard; views may flag it.
func (d Dashboard) Consistent() bool {
	sum := 0
	for _, n := range d.ByStatus {
		sum += n
	}
	return sum == d.TotalRequests
}
