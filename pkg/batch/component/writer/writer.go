// Package writer provides item writers that persist pipeline output.
package writer

import "context"

// ItemWriter writes items in chunks between Open and Close.
type ItemWriter[T any] interface {
	Open(ctx context.Context) error
	Write(ctx context.Context, items []T) error
	Close(ctx context.Context) error
}
