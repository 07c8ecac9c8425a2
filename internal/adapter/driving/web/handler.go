// Package web implements the HTML shell driving adapter. It renders
// server-side templates over the typed tracker client and owns the
// interactive sign-in flow against the identity provider.
package web

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mwalcott/reqtrack/internal/adapter/driven/tracker"
	"github.com/mwalcott/reqtrack/internal/application"
	"github.com/mwalcott/reqtrack/internal/domain/model"
	"github.com/mwalcott/reqtrack/internal/domain/port/driven"
)

const stateCookieName = "oauth_state"

// pageNames lists the page templates, each paired with layout.html at parse time.
var pageNames = []string{
	"dashboard", "login", "requests", "request_detail", "request_form",
	"projects", "admin_projects", "error",
}

// Handler is the web shell driving adapter.
type Handler struct {
	tracker driven.TrackerClient
	session driven.SessionManager
	issues  *application.IssueLookupProvider
	logger  *slog.Logger
	pages   map[string]*template.Template
}

// NewHandler creates a Handler with all required dependencies and parses the
// embedded page templates.
func NewHandler(
	trackerClient driven.TrackerClient,
	session driven.SessionManager,
	issues *application.IssueLookupProvider,
	logger *slog.Logger,
) (*Handler, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.ParseFS(TemplateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = t
	}

	return &Handler{
		tracker: trackerClient,
		session: session,
		issues:  issues,
		logger:  logger,
		pages:   pages,
	}, nil
}

// Routes builds the full route table wrapped in logging and recovery
// middleware. Sign-in routes and the health probe stay public; everything
// else requires a cached account.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	staticFS, _ := fs.Sub(StaticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /login", h.LoginPage)
	mux.HandleFunc("GET /auth/login", h.AuthLogin)
	mux.HandleFunc("GET /auth/callback", h.AuthCallback)
	mux.HandleFunc("POST /auth/logout", h.Logout)

	mux.HandleFunc("GET /{$}", h.requireSession(h.Dashboard))
	mux.HandleFunc("GET /requests", h.requireSession(h.ListRequests))
	mux.HandleFunc("GET /requests/new", h.requireSession(h.NewRequestForm))
	mux.HandleFunc("POST /requests", h.requireSession(h.CreateRequest))
	mux.HandleFunc("GET /requests/{id}", h.requireSession(h.RequestDetail))
	mux.HandleFunc("POST /requests/{id}/comments", h.requireSession(h.AddComment))
	mux.HandleFunc("POST /requests/{id}/status", h.requireSession(h.UpdateStatus))
	mux.HandleFunc("POST /requests/{id}/delete", h.requireSession(h.DeleteRequest))
	mux.HandleFunc("POST /requests/{id}/attachments", h.requireSession(h.UploadAttachments))
	mux.HandleFunc("GET /requests/{id}/attachments/{att}/download", h.requireSession(h.DownloadAttachment))
	mux.HandleFunc("POST /requests/{id}/attachments/{att}/delete", h.requireSession(h.DeleteAttachment))
	mux.HandleFunc("GET /projects", h.requireSession(h.Projects))
	mux.HandleFunc("GET /admin/projects", h.requireSession(h.AdminProjects))
	mux.HandleFunc("POST /admin/projects/sync", h.requireSession(h.SyncProjects))
	mux.HandleFunc("POST /admin/projects/{id}", h.requireSession(h.UpdateProject))

	return loggingMiddleware(h.logger, recoveryMiddleware(h.logger, mux))
}

// pageData is the payload every page template receives.
type pageData struct {
	Title       string
	AccountName string
	CSRFToken   string
	Data        any
}

// requireSession gates a handler on a cached account, redirecting to the
// sign-in page when none exists.
func (h *Handler) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accounts, err := h.session.CurrentAccounts(r.Context())
		if err != nil {
			h.renderError(w, r, err)
			return
		}
		if len(accounts) == 0 {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, page, title string, data any) {
	h.renderStatus(w, r, page, title, http.StatusOK, data)
}

func (h *Handler) renderStatus(w http.ResponseWriter, r *http.Request, page, title string, status int, data any) {
	accountName := ""
	if accounts, err := h.session.CurrentAccounts(r.Context()); err == nil && len(accounts) > 0 {
		accountName = accounts[0].Name
	}

	payload := pageData{
		Title:       title,
		AccountName: accountName,
		CSRFToken:   csrfToken(w, r), // Sets the cookie, so it must run before WriteHeader.
		Data:        data,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.pages[page].ExecuteTemplate(w, "layout", payload); err != nil {
		h.logger.Error("failed to render page", "page", page, "error", err)
	}
}

// errorData is the payload for the error page.
type errorData struct {
	Status  int
	Message string
}

// renderError maps a failed tracker call to a user-facing outcome. A dropped
// call that needs interactive reauthentication redirects into the sign-in
// flow; backend rejections surface their status and message inline.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, driven.ErrReauthRequired) {
		h.logger.Warn("silent token acquisition failed, redirecting to sign-in")
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}

	var apiErr *tracker.APIError
	if errors.As(err, &apiErr) {
		h.logger.Warn("backend rejected request", "status", apiErr.Status, "message", apiErr.Message)
		h.renderStatus(w, r, "error", "Error", apiErr.Status,
			errorData{Status: apiErr.Status, Message: apiErr.Message})
		return
	}

	h.logger.Error("request failed", "error", err)
	h.renderStatus(w, r, "error", "Error", http.StatusBadGateway, errorData{
		Status:  http.StatusBadGateway,
		Message: "the tracker backend could not be reached",
	})
}

// Healthz reports process liveness. It intentionally does not probe the
// backend; the panel is healthy even when the tracker is down.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// LoginPage renders the sign-in page. It is the only page reachable without
// a cached account.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.session.CurrentAccounts(r.Context())
	if err == nil && len(accounts) > 0 {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, r, "login", "Sign in", nil)
}

// AuthLogin starts the interactive redirect flow against the identity
// provider. The state value round-trips through a cookie and the provider.
func (h *Handler) AuthLogin(w http.ResponseWriter, r *http.Request) {
	state := make([]byte, 16)
	if _, err := rand.Read(state); err != nil {
		h.renderError(w, r, fmt.Errorf("generating state: %w", err))
		return
	}
	encoded := hex.EncodeToString(state)

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    encoded,
		Path:     "/auth",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300,
	})

	http.Redirect(w, r, h.session.LoginURL(encoded), http.StatusSeeOther)
}

// AuthCallback completes the redirect flow: it validates the state echo and
// exchanges the authorization code for a session.
func (h *Handler) AuthCallback(w http.ResponseWriter, r *http.Request) {
	if msg := r.URL.Query().Get("error"); msg != "" {
		h.logger.Warn("identity provider returned an error", "error", msg)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" ||
		subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(r.URL.Query().Get("state"))) != 1 {
		http.Error(w, "state mismatch", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Path: "/auth", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	account, err := h.session.CompleteLogin(r.Context(), code)
	if err != nil {
		h.renderError(w, r, fmt.Errorf("completing sign-in: %w", err))
		return
	}

	h.logger.Info("signed in", "account", account.ID, "name", account.Name)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout tears down the local session and forwards to the provider's
// end-session URL when it exposes one.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	endSession, err := h.session.Logout(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	if endSession == "" {
		endSession = "/login"
	}
	http.Redirect(w, r, endSession, http.StatusSeeOther)
}

// Dashboard renders the aggregate overview page.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.tracker.Dashboard(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.render(w, r, "dashboard", "Dashboard", toDashboardView(dashboard))
}

// requestListData is the payload for the request list page.
type requestListData struct {
	Rows       []RequestRow
	Statuses   []string
	Types      []string
	Priorities []string
	Filter     requestListFilter
}

type requestListFilter struct {
	Status   string
	Type     string
	Priority string
	Search   string
}

// ListRequests renders the filterable request list. Filters come straight
// from the query string; the backend does the actual narrowing.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.RequestFilter{
		Status:   model.RequestStatus(q.Get("status")),
		Type:     model.RequestType(q.Get("type")),
		Priority: model.Priority(q.Get("priority")),
		Search:   q.Get("search"),
	}

	requests, err := h.tracker.ListRequests(r.Context(), filter)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.render(w, r, "requests", "Requests", requestListData{
		Rows:       toRequestRows(requests),
		Statuses:   statusOptions(),
		Types:      typeOptions(),
		Priorities: priorityOptions(),
		Filter: requestListFilter{
			Status:   q.Get("status"),
			Type:     q.Get("type"),
			Priority: q.Get("priority"),
			Search:   q.Get("search"),
		},
	})
}

// requestFormData is the payload for the new-request form.
type requestFormData struct {
	Projects   []ProjectRow
	Types      []string
	Priorities []string
}

// NewRequestForm renders the submission form with the active project list.
func (h *Handler) NewRequestForm(w http.ResponseWriter, r *http.Request) {
	projects, err := h.tracker.ListProjects(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.render(w, r, "request_form", "New request", requestFormData{
		Projects:   toProjectRows(projects),
		Types:      typeOptions(),
		Priorities: priorityOptions(),
	})
}

// CreateRequest submits a new development request from the form post.
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	projectID, err := strconv.ParseInt(r.FormValue("projectId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid project", http.StatusBadRequest)
		return
	}

	create := model.CreateRequest{
		ProjectID:        projectID,
		Title:            r.FormValue("title"),
		Description:      r.FormValue("description"),
		Type:             model.RequestType(r.FormValue("requestType")),
		Priority:         model.Priority(r.FormValue("priority")),
		ReproSteps:       r.FormValue("reproSteps"),
		ExpectedBehavior: r.FormValue("expectedBehavior"),
		ActualBehavior:   r.FormValue("actualBehavior"),
	}

	if create.Title == "" || !create.Type.Valid() || !create.Priority.Valid() {
		http.Error(w, "title, type, and priority are required", http.StatusBadRequest)
		return
	}

	created, err := h.tracker.CreateRequest(r.Context(), create)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/requests/%d", created.ID), http.StatusSeeOther)
}

// RequestDetail renders a single request with comments, attachments, and,
// when a GitHub token is configured, the live state of the linked issue.
func (h *Handler) RequestDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}

	request, err := h.tracker.GetRequest(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	detail := toRequestDetail(request)
	h.enrichLinkedIssue(r, request, &detail)

	h.render(w, r, "request_detail", request.Title, detail)
}

// enrichLinkedIssue attaches live issue state when a lookup is available.
// Enrichment is best-effort: a lookup failure logs and leaves the bare
// issue reference in place.
func (h *Handler) enrichLinkedIssue(r *http.Request, request *model.DevRequest, detail *RequestDetail) {
	if request.LinkedIssue == nil || !h.issues.HasLookup() {
		return
	}

	repo := repoFromIssueURL(request.LinkedIssue.URL)
	if repo == "" {
		return
	}

	status, err := h.issues.Get().IssueStatus(r.Context(), repo, request.LinkedIssue.Number)
	if err != nil {
		h.logger.Warn("linked issue lookup failed",
			"request", request.ID,
			"issue", request.LinkedIssue.Number,
			"error", err,
		)
		return
	}
	if status == nil {
		return
	}

	detail.LinkedIssue.Title = status.Title
	detail.LinkedIssue.State = status.State
}

// AddComment appends a comment to a request.
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	content := r.FormValue("content")
	if content == "" {
		http.Error(w, "comment content is required", http.StatusBadRequest)
		return
	}

	if _, err := h.tracker.AddComment(r.Context(), id, content); err != nil {
		h.renderError(w, r, err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/requests/%d", id), http.StatusSeeOther)
}

// UpdateStatus submits a status change for a request.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	status := model.RequestStatus(r.FormValue("status"))
	if !status.Valid() {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	if _, err := h.tracker.UpdateRequest(r.Context(), id, model.UpdateRequest{Status: &status}); err != nil {
		h.renderError(w, r, err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/requests/%d", id), http.StatusSeeOther)
}

// DeleteRequest removes a request and returns to the list.
func (h *Handler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	if err := h.tracker.DeleteRequest(r.Context(), id); err != nil {
		h.renderError(w, r, err)
		return
	}

	http.Redirect(w, r, "/requests", http.StatusSeeOther)
}

// maxUploadBytes bounds a single upload post. The backend enforces its own
// per-file limit; this only protects the panel process.
const maxUploadBytes = 64 << 20

// UploadAttachments forwards the posted files to the backend in a single
// multipart request.
func (h *Handler) UploadAttachments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		http.Error(w, "invalid upload", http.StatusBadRequest)
		return
	}
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	headers := r.MultipartForm.File["files"]
	uploads := make([]model.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			http.Error(w, "invalid upload", http.StatusBadRequest)
			return
		}
		defer f.Close()

		uploads = append(uploads, model.Upload{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     f,
		})
	}

	if len(uploads) > 0 {
		if _, err := h.tracker.UploadAttachments(r.Context(), id, uploads); err != nil {
			h.renderError(w, r, err)
			return
		}
	}

	http.Redirect(w, r, fmt.Sprintf("/requests/%d", id), http.StatusSeeOther)
}

// DownloadAttachment streams an attachment's bytes to the browser. The blob
// handle is released before the handler returns.
func (h *Handler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	attID, err := pathID(r, "att")
	if err != nil {
		http.NotFound(w, r)
		return
	}

	ref, err := h.tracker.FetchAttachment(r.Context(), id, attID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	defer h.tracker.ReleaseBlob(ref)

	data, err := h.tracker.ReadBlob(ref)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	contentType := ref.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ref.FileName))
	w.Header().Set("Content-Length", strconv.FormatInt(ref.Size, 10))
	_, _ = w.Write(data)
}

// DeleteAttachment removes an attachment from a request.
func (h *Handler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	attID, err := pathID(r, "att")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	if err := h.tracker.DeleteAttachment(r.Context(), id, attID); err != nil {
		h.renderError(w, r, err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/requests/%d", id), http.StatusSeeOther)
}

// projectsData is the payload for both project pages.
type projectsData struct {
	Rows  []ProjectRow
	Admin bool
}

// Projects renders the read-only project listing.
func (h *Handler) Projects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.tracker.ListProjects(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.render(w, r, "projects", "Projects", projectsData{Rows: toProjectRows(projects)})
}

// AdminProjects renders the full project listing including inactive entries.
func (h *Handler) AdminProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.tracker.ListProjectsAdmin(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.render(w, r, "admin_projects", "Manage projects", projectsData{Rows: toProjectRows(projects), Admin: true})
}

// SyncProjects triggers a backend re-sync against GitHub.
func (h *Handler) SyncProjects(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	if _, err := h.tracker.SyncProjects(r.Context()); err != nil {
		h.renderError(w, r, err)
		return
	}

	http.Redirect(w, r, "/admin/projects", http.StatusSeeOther)
}

// UpdateProject updates a project's display metadata and active flag.
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	displayName := r.FormValue("displayName")
	description := r.FormValue("description")
	isActive := r.FormValue("isActive") == "on"

	update := model.UpdateProject{
		DisplayName: &displayName,
		Description: &description,
		IsActive:    &isActive,
	}

	if _, err := h.tracker.UpdateProject(r.Context(), id, update); err != nil {
		h.renderError(w, r, err)
		return
	}

	http.Redirect(w, r, "/admin/projects", http.StatusSeeOther)
}

// repoFromIssueURL extracts "owner/repo" from a GitHub issue URL such as
// https://github.com/owner/repo/issues/17. Returns "" for anything else.
func repoFromIssueURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 4 || parts[2] != "issues" {
		return ""
	}
	return parts[0] + "/" + parts[1]
}

// pathID parses a positive integer path parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s path value %q", name, r.PathValue(name))
	}
	return id, nil
}
