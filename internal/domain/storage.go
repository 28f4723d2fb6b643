package domain

import (
	"context"
	"time"
)

// Storage is a destination for finished backup files: the local backup
// directory or a remote upload target. Targets that cannot enumerate or age
// their files (Telegram) return empty results and leave retention to the
// filename-timestamp fallback.
type Storage interface {
	Upload(ctx context.Context, localPath string, remoteName string) error
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, remoteName string) error
	// GetOldFiles lists files last modified before cutoffTime.
	GetOldFiles(ctx context.Context, cutoffTime time.Time) ([]string, error)
}
