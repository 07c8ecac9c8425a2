package driven

import (
	"context"
	"errors"

	"github.com/mwalcott/reqtrack/internal/domain/model"
)

// ErrBlobReleased is returned when reading a blob handle after release.
var ErrBlobReleased = errors.New("blob reference released")

// TrackerClient defines the driven port for the request-tracking backend.
// One strongly-typed method per backend operation; authorization is attached
// by the adapter's transport before any request is sent. Backend errors are
// surfaced unmodified as a typed error carrying the HTTP status and the
// backend's message -- no retry, no local caching.
type TrackerClient interface {
	// Requests

	ListRequests(ctx context.Context, filter model.RequestFilter) ([]model.DevRequest, error)
	GetRequest(ctx context.Context, id int64) (*model.DevRequest, error)
	CreateRequest(ctx context.Context, req model.CreateRequest) (*model.DevRequest, error)
	UpdateRequest(ctx context.Context, id int64, req model.UpdateRequest) (*model.DevRequest, error)
	DeleteRequest(ctx context.Context, id int64) error
	AddComment(ctx context.Context, id int64, content string) (*model.Comment, error)

	// Dashboard

	Dashboard(ctx context.Context) (*model.Dashboard, error)

	// Projects

	ListProjects(ctx context.Context) ([]model.Project, error)
	ListProjectsAdmin(ctx context.Context) ([]model.Project, error)
	SyncProjects(ctx context.Context) ([]model.Project, error)
	UpdateProject(ctx context.Context, id int64, req model.UpdateProject) (*model.Project, error)

	// Attachments

	// UploadAttachments sends the given files as one multipart request with a
	// repeated "files" field and returns the created attachment entries.
	UploadAttachments(ctx context.Context, requestID int64, files []model.Upload) ([]model.Attachment, error)
	// FetchAttachment retrieves the binary payload into a transient in-memory
	// blob handle. The caller must ReleaseBlob the handle after use.
	FetchAttachment(ctx context.Context, requestID, attachmentID int64) (model.BlobRef, error)
	// ReadBlob returns the bytes behind a handle, or ErrBlobReleased.
	ReadBlob(ref model.BlobRef) ([]byte, error)
	// ReleaseBlob frees the bytes behind a handle. Releasing twice is a no-op.
	ReleaseBlob(ref model.BlobRef)
	// DownloadAttachment fetches the payload, writes it to destDir under the
	// attachment's file name, and releases the blob handle before returning.
	// It returns the written file path.
	DownloadAttachment(ctx context.Context, requestID, attachmentID int64, destDir string) (string, error)
	// AttachmentURL returns the direct, authorization-bearing download URL.
	AttachmentURL(requestID, attachmentID int64) string
	DeleteAttachment(ctx context.Context, requestID, attachmentID int64) error
}
