package tracker

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/mwalcott/reqtrack/internal/domain/model"
	"github.com/mwalcott/reqtrack/internal/domain/port/driven"
)

// blobStore holds fetched attachment payloads for the current process
// session. Handles are valid until explicitly released; there is no
// automatic lifecycle management, so callers that fetch must release.
// The store belongs to one Client rather than living as package state.
type blobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newBlobStore() *blobStore {
	return &blobStore{blobs: map[string][]byte{}}
}

// put registers data under a fresh handle id.
func (s *blobStore) put(data []byte) string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	id := hex.EncodeToString(buf)

	s.mu.Lock()
	s.blobs[id] = data
	s.mu.Unlock()
	return id
}

// get returns the bytes behind a handle id, or driven.ErrBlobReleased.
func (s *blobStore) get(id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.blobs[id]
	if !ok {
		return nil, driven.ErrBlobReleased
	}
	return data, nil
}

// release frees the bytes behind a handle id. Releasing twice is a no-op.
func (s *blobStore) release(id string) {
	s.mu.Lock()
	delete(s.blobs, id)
	s.mu.Unlock()
}

// len reports the number of live handles. Used to verify no handle leaks
// across repeated downloads.
func (s *blobStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

// ReadBlob returns the bytes behind a handle, or driven.ErrBlobReleased once
// the handle has been released.
func (c *Client) ReadBlob(ref model.BlobRef) ([]byte, error) {
	return c.blobs.get(ref.ID)
}

// ReleaseBlob frees the bytes behind a handle. Releasing twice is a no-op.
func (c *Client) ReleaseBlob(ref model.BlobRef) {
	c.blobs.release(ref.ID)
}

// LiveBlobs reports the number of unreleased blob handles.
func (c *Client) LiveBlobs() int {
	return c.blobs.len()
}
