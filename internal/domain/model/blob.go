package model

import "io"

// Upload is one file submitted to the attachment upload endpoint.
type Upload struct {
	FileName    string
	ContentType string
	Content     io.Reader
}

// BlobRef is a transient handle to fetched attachment bytes held in memory
// for the current process session. The bytes stay retrievable until the
// handle is explicitly released; nothing releases it automatically except
// the single convenience download operation.
type BlobRef struct {
	ID          string
	FileName    string
	ContentType string
	Size        int64
}
