// Package metadata stores the CLI's small key/value cache: the last signed-in
// username and the material needed to verify a password offline.
package metadata

import (
	"context"
)

// Repository is a byte-valued key/value store. Get and GetMany report a
// missing key as common.ErrorNotFound.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetMany(ctx context.Context, keys ...string) (map[string][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
