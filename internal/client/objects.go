package client

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by object stores when a key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the subset of a bucket API used for lesson documents and
// audio archives. R2 and GCS both implement it.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

var (
	_ ObjectStore = (*CloudflareClient)(nil)
	_ ObjectStore = (*StorageClient)(nil)
)
