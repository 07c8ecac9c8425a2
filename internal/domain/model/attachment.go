package model

import "time"

// Attachment is a file uploaded to a development request. The binary content
// lives server-side; the client only holds this metadata plus, transiently,
// an in-memory blob handle while previewing or saving.
type Attachment struct {
	ID          int64     `json:"id"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	UploadedBy  string    `json:"uploadedBy"`
	CreatedAt   time.Time `json:"createdAt"`
	DownloadURL string    `json:"downloadUrl,omitempty"`
}
