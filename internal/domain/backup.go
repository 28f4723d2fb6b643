package domain

import (
	"context"
	"time"
)

type Backup struct {
	Filename     string
	FilePath     string
	Size         int64
	CreatedAt    time.Time
	DatabaseName string
}

type BackupExecutor interface {
	Execute(ctx context.Context) (*Backup, error)
}
