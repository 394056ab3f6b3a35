// Package storage keeps sealed report blobs in S3-compatible object storage.
// Only ciphertext is ever written here.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned by Get when no object exists under the key.
var ErrObjectNotFound = errors.New("object not found")

// metaKeyID is the user metadata entry carrying the sealing key id. S3 returns
// user metadata in canonical header form, so the key is stored that way too.
const metaKeyID = "Key-Id"

// PutOptions describe a blob being uploaded.
type PutOptions struct {
	ContentType string
	// KeyID names the encryption key the blob was sealed with.
	KeyID string
}

// ObjectInfo describes a stored blob.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	KeyID        string
	LastModified time.Time
}

// Storage stores and fetches sealed blobs by key.
type Storage interface {
	Put(ctx context.Context, key string, data []byte, opt PutOptions) (ObjectInfo, error)
	// Get streams an object. A missing key yields ErrObjectNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// ReadAll fetches the whole object stored under key together with its info.
func ReadAll(ctx context.Context, s Storage, key string) ([]byte, ObjectInfo, error) {
	rc, info, err := s.Get(ctx, key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	return data, info, nil
}

func userMetadata(opt PutOptions) map[string]string {
	if opt.KeyID == "" {
		return nil
	}
	return map[string]string{metaKeyID: opt.KeyID}
}
