package vault

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const imageKeyPrefix = "receipt_image_"

// ImageStore persists binary image payloads in the key-value store,
// base64-encoded under synthetic keys. A receipt's ImageURI may hold either
// a managed key produced by Put or an external URI left untouched.
type ImageStore struct {
	kv     KV
	now    func() time.Time
	suffix func() string
}

// NewImageStore creates an ImageStore on top of kv
func NewImageStore(kv KV) *ImageStore {
	return &ImageStore{
		kv:  kv,
		now: time.Now,
		suffix: func() string {
			return uuid.NewString()[:8]
		},
	}
}

// IsManaged reports whether ref is a key produced by this store
func (s *ImageStore) IsManaged(ref string) bool {
	return strings.HasPrefix(ref, imageKeyPrefix)
}

// Put stores raw image bytes and returns the managed reference. The key
// carries a uniqueness suffix so two puts in the same nanosecond cannot
// collide.
func (s *ImageStore) Put(data []byte) (string, error) {
	ref := fmt.Sprintf("%s%d_%s", imageKeyPrefix, s.now().UnixNano(), s.suffix())
	encoded := base64.StdEncoding.EncodeToString(data)
	if err := s.kv.Set(ref, encoded); err != nil {
		return "", fmt.Errorf("storing image: %w", err)
	}
	return ref, nil
}

// Get resolves a reference to raw image bytes. Unmanaged references are
// returned unchanged so callers can treat ImageURI as polymorphic over
// managed keys and direct URIs.
func (s *ImageStore) Get(ref string) ([]byte, error) {
	if !s.IsManaged(ref) {
		return []byte(ref), nil
	}

	encoded, err := s.kv.Get(ref)
	if err != nil {
		return nil, fmt.Errorf("retrieving image %s: %w", ref, err)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding image %s: %w", ref, err)
	}
	return data, nil
}

// Delete removes a managed image. Deleting an absent or unmanaged
// reference is a no-op, which makes retention cleanup idempotent.
func (s *ImageStore) Delete(ref string) error {
	if !s.IsManaged(ref) {
		return nil
	}
	if err := s.kv.RemoveMany([]string{ref}); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("deleting image %s: %w", ref, err)
	}
	return nil
}

// ListRefs returns every managed image key currently stored
func (s *ImageStore) ListRefs() ([]string, error) {
	keys, err := s.kv.ListKeys()
	if err != nil {
		return nil, fmt.Errorf("listing image keys: %w", err)
	}
	refs := make([]string, 0)
	for _, key := range keys {
		if s.IsManaged(key) {
			refs = append(refs, key)
		}
	}
	return refs, nil
}
