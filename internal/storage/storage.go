// Package storage abstracts the object store that dataset snapshots
// are exported to. The copilot only ever writes snapshots; reads stay
// in the warehouse.
package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

// ParquetContentType tags snapshot uploads.
const ParquetContentType = "application/vnd.apache.parquet"

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

type PutOptions struct {
	ContentType string
}

type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
}

// PutBytes uploads an in-memory payload, the shape every snapshot
// export produces.
func PutBytes(ctx context.Context, store ObjectStore, key string, payload []byte, contentType string) (ObjectInfo, error) {
	return store.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), PutOptions{ContentType: contentType})
}
