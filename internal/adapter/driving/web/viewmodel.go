package web

import (
	"fmt"
	"html/template"
	"time"

	"github.com/mwalcott/reqtrack/internal/domain/model"
)

// RequestRow is the list-view projection of a development request.
type RequestRow struct {
	ID          int64
	Title       string
	Type        string
	Priority    string
	Status      string
	ProjectName string
	Updated     string
}

// RequestDetail is the full projection for the request detail page.
type RequestDetail struct {
	ID               int64
	Title            string
	Description      template.HTML
	Type             string
	Priority         string
	Status           string
	Terminal         bool
	ReproSteps       template.HTML
	ExpectedBehavior template.HTML
	ActualBehavior   template.HTML
	SubmitterName    string
	SubmitterEmail   string
	ProjectName      string
	Created          string
	Updated          string
	LinkedIssue      *LinkedIssue
	Comments         []CommentView
	Attachments      []AttachmentView
	Statuses         []string
}

// LinkedIssue carries the request's issue reference plus, when a GitHub
// token is configured, the live state fetched from the issue tracker.
type LinkedIssue struct {
	Number int
	URL    string
	Title  string
	State  string // "" when live enrichment is unavailable.
}

// CommentView is the rendered projection of a comment.
type CommentView struct {
	AuthorName string
	Content    template.HTML
	Created    string
}

// AttachmentView is the projection of an attachment row.
type AttachmentView struct {
	ID        int64
	RequestID int64
	FileName  string
	Size      string
	Uploaded  string
}

// ProjectRow is the projection of a project for both the picker and the
// admin listing.
type ProjectRow struct {
	ID           int64
	FullName     string
	DisplayName  string
	Description  string
	IsActive     bool
	RequestCount int
	LastSynced   string
}

// DashboardView is the projection of the backend's dashboard aggregate.
type DashboardView struct {
	Total        int
	ByStatus     []CountRow
	ByType       []CountRow
	ByPriority   []CountRow
	Recent       []RequestRow
	Inconsistent bool
}

// CountRow is one labeled count in a dashboard breakdown.
type CountRow struct {
	Label string
	Count int
}

func toRequestRow(r model.DevRequest) RequestRow {
	return RequestRow{
		ID:          r.ID,
		Title:       r.Title,
		Type:        string(r.Type),
		Priority:    string(r.Priority),
		Status:      string(r.Status),
		ProjectName: r.ProjectName,
		Updated:     formatTime(r.UpdatedAt),
	}
}

func toRequestRows(reqs []model.DevRequest) []RequestRow {
	rows := make([]RequestRow, 0, len(reqs))
	for _, r := range reqs {
		rows = append(rows, toRequestRow(r))
	}
	return rows
}

func toRequestDetail(r *model.DevRequest) RequestDetail {
	detail := RequestDetail{
		ID:               r.ID,
		Title:            r.Title,
		Description:      markdownHTML(r.Description),
		Type:             string(r.Type),
		Priority:         string(r.Priority),
		Status:           string(r.Status),
		Terminal:         r.Status.Terminal(),
		ReproSteps:       markdownHTML(r.ReproSteps),
		ExpectedBehavior: markdownHTML(r.ExpectedBehavior),
		ActualBehavior:   markdownHTML(r.ActualBehavior),
		SubmitterName:    r.SubmitterName,
		SubmitterEmail:   r.SubmitterEmail,
		ProjectName:      r.ProjectName,
		Created:          formatTime(r.CreatedAt),
		Updated:          formatTime(r.UpdatedAt),
		Statuses:         statusOptions(),
	}

	if r.LinkedIssue != nil {
		detail.LinkedIssue = &LinkedIssue{
			Number: r.LinkedIssue.Number,
			URL:    r.LinkedIssue.URL,
		}
	}

	for _, c := range r.Comments {
		detail.Comments = append(detail.Comments, CommentView{
			AuthorName: c.AuthorName,
			Content:    markdownHTML(c.Content),
			Created:    formatTime(c.CreatedAt),
		})
	}

	for _, a := range r.Attachments {
		detail.Attachments = append(detail.Attachments, AttachmentView{
			ID:        a.ID,
			RequestID: r.ID,
			FileName:  a.FileName,
			Size:      formatSize(a.Size),
			Uploaded:  formatTime(a.CreatedAt),
		})
	}

	return detail
}

func toProjectRow(p model.Project) ProjectRow {
	name := p.DisplayName
	if name == "" {
		name = p.FullName
	}

	return ProjectRow{
		ID:           p.ID,
		FullName:     p.FullName,
		DisplayName:  name,
		Description:  p.Description,
		IsActive:     p.IsActive,
		RequestCount: p.RequestCount,
		LastSynced:   formatTime(p.LastSyncedAt),
	}
}

func toProjectRows(projects []model.Project) []ProjectRow {
	rows := make([]ProjectRow, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, toProjectRow(p))
	}
	return rows
}

func toDashboardView(d *model.Dashboard) DashboardView {
	view := DashboardView{
		Total:        d.TotalRequests,
		Recent:       toRequestRows(d.Recent),
		Inconsistent: !d.Consistent(),
	}

	for _, s := range model.RequestStatuses {
		if n, ok := d.ByStatus[s]; ok {
			view.ByStatus = append(view.ByStatus, CountRow{Label: string(s), Count: n})
		}
	}
	for _, t := range model.RequestTypes {
		if n, ok := d.ByType[t]; ok {
			view.ByType = append(view.ByType, CountRow{Label: string(t), Count: n})
		}
	}
	for _, p := range model.Priorities {
		if n, ok := d.ByPriority[p]; ok {
			view.ByPriority = append(view.ByPriority, CountRow{Label: string(p), Count: n})
		}
	}

	return view
}

func statusOptions() []string {
	opts := make([]string, 0, len(model.RequestStatuses))
	for _, s := range model.RequestStatuses {
		opts = append(opts, string(s))
	}
	return opts
}

func typeOptions() []string {
	opts := make([]string, 0, len(model.RequestTypes))
	for _, t := range model.RequestTypes {
		opts = append(opts, string(t))
	}
	return opts
}

func priorityOptions() []string {
	opts := make([]string, 0, len(model.Priorities))
	for _, p := range model.Priorities {
		opts = append(opts, string(p))
	}
	return opts
}

// markdownHTML renders markdown to sanitized HTML safe for template injection.
func markdownHTML(src string) template.HTML {
	return template.HTML(RenderMarkdown(src)) // #nosec G203 -- sanitized by bluemonday
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
