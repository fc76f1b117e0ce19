// Package objstore defines the durable object storage the ledger and the raw
// inbound emails live in.
package objstore

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned (wrapped) when a key does not exist.
var ErrNotFound = errors.New("object not found")

// Store is a flat bucket/key blob store.
type Store interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, body []byte) error
	// Copy overwrites dstKey with the contents of srcKey within one bucket.
	Copy(ctx context.Context, bucket, srcKey, dstKey string) error
}

// JoinKey joins a key prefix and a name with a single slash. An empty prefix
// yields the bare name.
func JoinKey(prefix, name string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
