package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mwalcott/reqtrack/internal/domain/model"
)

// UploadAttachments sends the given files as one multipart request. Each file
// occupies its own part under the repeated "files" field, matching the
// backend's repeatable-field contract. Returns the created attachment
// entries, one per uploaded file.
func (c *Client) UploadAttachments(ctx context.Context, requestID int64, files []model.Upload) ([]model.Attachment, error) {
	if len(files) == 0 {
		return []model.Attachment{}, nil
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		err := writeParts(writer, files)
		if cerr := writer.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	u := c.requestURL(requestID) + "/attachments"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, pr)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, unwrapURLError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, readAPIError(resp)
	}

	var out []model.Attachment
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out == nil {
		out = []model.Attachment{}
	}
	return out, nil
}

// writeParts streams each upload into its own multipart section.
func writeParts(w *multipart.Writer, files []model.Upload) error {
	for _, f := range files {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="files"; filename=%q`, f.FileName))
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		part, err := w.CreatePart(header)
		if err != nil {
			return fmt.Errorf("create part for %q: %w", f.FileName, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return fmt.Errorf("copy %q: %w", f.FileName, err)
		}
	}
	return nil
}

// FetchAttachment retrieves the binary payload into a transient in-memory
// blob handle. The handle stays readable until the caller releases it; the
// caller owns that release.
func (c *Client) FetchAttachment(ctx context.Context, requestID, attachmentID int64) (model.BlobRef, error) {
	u := c.attachmentURL(requestID, attachmentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.BlobRef{}, fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return model.BlobRef{}, unwrapURLError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return model.BlobRef{}, readAPIError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.BlobRef{}, fmt.Errorf("read payload: %w", err)
	}

	ref := model.BlobRef{
		ID:          c.blobs.put(data),
		FileName:    fileNameFromResponse(resp, attachmentID),
		ContentType: resp.Header.Get("Content-Type"),
		Size:        int64(len(data)),
	}
	return ref, nil
}

// DownloadAttachment is the single convenience operation that manages the
// blob lifecycle itself: fetch, save under the attachment's file name in
// destDir, release the handle, return the written path.
func (c *Client) DownloadAttachment(ctx context.Context, requestID, attachmentID int64, destDir string) (string, error) {
	ref, err := c.FetchAttachment(ctx, requestID, attachmentID)
	if err != nil {
		return "", err
	}
	defer c.ReleaseBlob(ref)

	data, err := c.ReadBlob(ref)
	if err != nil {
		return "", err
	}

	path := filepath.Join(destDir, filepath.Base(ref.FileName))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %q: %w", path, err)
	}
	return path, nil
}

// AttachmentURL returns the direct download URL for an attachment. The URL
// requires the same bearer authorization as every other call.
func (c *Client) AttachmentURL(requestID, attachmentID int64) string {
	return c.attachmentURL(requestID, attachmentID)
}

// DeleteAttachment removes an attachment from a request.
func (c *Client) DeleteAttachment(ctx context.Context, requestID, attachmentID int64) error {
	return c.doJSON(ctx, http.MethodDelete, c.attachmentURL(requestID, attachmentID), nil, nil)
}

func (c *Client) attachmentURL(requestID, attachmentID int64) string {
	return c.requestURL(requestID) + "/attachments/" + strconv.FormatInt(attachmentID, 10)
}

// fileNameFromResponse extracts the served file name from the
// Content-Disposition header, with a stable fallback.
func fileNameFromResponse(resp *http.Response, attachmentID int64) string {
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		if name := params["filename"]; name != "" {
			return name
		}
	}
	return "attachment-" + strconv.FormatInt(attachmentID, 10)
}
