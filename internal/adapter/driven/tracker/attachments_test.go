package tracker_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwalcott/reqtrack/internal/adapter/driven/tracker"
	"github.com/mwalcott/reqtrack/internal/domain/model"
	"github.com/mwalcott/reqtrack/internal/domain/port/driven"
)

func TestUploadAttachments_MultipleFiles(t *testing.T) {
	session := &fakeSession{token: "tok-1"}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/requests/7/attachments", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"),
			"uploads are sent as multipart form data")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		parts := r.MultipartForm.File["files"]
		require.Len(t, parts, 3, "each file becomes its own part under the same field name")

		var attachments []model.Attachment
		for i, part := range parts {
			f, err := part.Open()
			require.NoError(t, err)
			content, err := io.ReadAll(f)
			require.NoError(t, err)
			require.NoError(t, f.Close())

			assert.Equal(t, fmt.Sprintf("file-%d.txt", i), part.Filename)
			assert.Equal(t, fmt.Sprintf("content %d", i), string(content))

			attachments = append(attachments, model.Attachment{
				ID:       int64(100 + i),
				FileName: part.Filename,
				Size:     part.Size,
			})
		}
		writeJSON(t, w, http.StatusCreated, attachments)
	})
	client := newTestClient(t, session, handler)

	uploads := make([]model.Upload, 3)
	for i := range uploads {
		uploads[i] = model.Upload{
			FileName:    fmt.Sprintf("file-%d.txt", i),
			ContentType: "text/plain",
			Content:     strings.NewReader(fmt.Sprintf("content %d", i)),
		}
	}

	attachments, err := client.UploadAttachments(context.Background(), 7, uploads)
	require.NoError(t, err)
	require.Len(t, attachments, 3)
	assert.Equal(t, int64(100), attachments[0].ID)
	assert.Equal(t, "file-2.txt", attachments[2].FileName)
}

func TestUploadAttachments_DefaultContentType(t *testing.T) {
	session := &fakeSession{token: "tok-1"}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		parts := r.MultipartForm.File["files"]
		require.Len(t, parts, 1)
		assert.Equal(t, "application/octet-stream", parts[0].Header.Get("Content-Type"))
		writeJSON(t, w, http.StatusCreated, []model.Attachment{{ID: 1, FileName: parts[0].Filename}})
	})
	client := newTestClient(t, session, handler)

	attachments, err := client.UploadAttachments(context.Background(), 7, []model.Upload{
		{FileName: "dump.bin", Content: strings.NewReader("\x00\x01")},
	})
	require.NoError(t, err)
	require.Len(t, attachments, 1)
}

func TestFetchAttachment_BlobLifecycle(t *testing.T) {
	session := &fakeSession{token: "tok-1"}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/requests/7/attachments/9", r.URL.Path)
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Content-Disposition", `attachment; filename="notes.txt"`)
		_, _ = w.Write([]byte("attached notes"))
	})
	client := newTestClient(t, session, handler)

	ref, err := client.FetchAttachment(context.Background(), 7, 9)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", ref.FileName)
	assert.Equal(t, "text/plain", ref.ContentType)
	assert.Equal(t, int64(len("attached notes")), ref.Size)
	assert.Equal(t, 1, client.LiveBlobs())

	data, err := client.ReadBlob(ref)
	require.NoError(t, err)
	assert.Equal(t, "attached notes", string(data))

	client.ReleaseBlob(ref)
	assert.Equal(t, 0, client.LiveBlobs())

	_, err = client.ReadBlob(ref)
	assert.ErrorIs(t, err, driven.ErrBlobReleased, "a released handle must not be readable")

	// Releasing twice is a no-op.
	client.ReleaseBlob(ref)
}

func TestFetchAttachment_FallbackFileName(t *testing.T) {
	session := &fakeSession{token: "tok-1"}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("no disposition header"))
	})
	client := newTestClient(t, session, handler)

	ref, err := client.FetchAttachment(context.Background(), 7, 9)
	require.NoError(t, err)
	assert.Equal(t, "attachment-9", ref.FileName)
	client.ReleaseBlob(ref)
}

func TestDownloadAttachment_WritesFileAndReleases(t *testing.T) {
	session := &fakeSession{token: "tok-1"}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="report.csv"`)
		_, _ = w.Write([]byte("a,b\n1,2\n"))
	})
	client := newTestClient(t, session, handler)

	dir := t.TempDir()
	for range 3 {
		path, err := client.DownloadAttachment(context.Background(), 7, 9, dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "report.csv"), path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "a,b\n1,2\n", string(data))
	}
	assert.Equal(t, 0, client.LiveBlobs(), "downloads must not leak blob handles")
}

func TestDeleteAttachment(t *testing.T) {
	session := &fakeSession{token: "tok-1"}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/requests/7/attachments/9", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})
	client := newTestClient(t, session, handler)

	require.NoError(t, client.DeleteAttachment(context.Background(), 7, 9))
}

func TestAttachmentURL(t *testing.T) {
	client := tracker.NewClient("http://localhost:5119/api", &fakeSession{token: "t"}, nil)

	assert.Equal(t,
		"http://localhost:5119/api/requests/7/attachments/9",
		client.AttachmentURL(7, 9))
}
