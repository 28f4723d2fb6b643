package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ramtinsoft/ibsguard/internal/domain"
)

// backupTimeLayout is embedded in every backup filename.
const backupTimeLayout = "2006-01-02_15-04-05"

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

type LocalStorage interface {
	domain.Storage
	GetPath(filename string) string
}

type UploadTarget struct {
	Name    string
	Storage domain.Storage
}

// Backup produces a single verified, compressed dump of the container's
// database. One best-effort attempt per call, no retry.
type Backup struct {
	rt            domain.ContainerRuntime
	db            domain.DatabaseAdmin
	localStorage  LocalStorage
	uploadTargets []UploadTarget
	compressor    domain.Compressor
	logger        Logger
	container     string

	now func() time.Time
}

func NewBackup(
	rt domain.ContainerRuntime,
	db domain.DatabaseAdmin,
	localStorage LocalStorage,
	uploadTargets []UploadTarget,
	compressor domain.Compressor,
	logger Logger,
	container string,
) *Backup {
	return &Backup{
		rt:            rt,
		db:            db,
		localStorage:  localStorage,
		uploadTargets: uploadTargets,
		compressor:    compressor,
		logger:        logger,
		container:     container,
		now:           time.Now,
	}
}

// Execute dumps the database through a gzip stream into a timestamped file.
// Success requires the dump tool's own exit status to be zero AND a non-empty
// output file; otherwise the partial file is removed and an error returned.
func (uc *Backup) Execute(ctx context.Context) (*domain.Backup, error) {
	start := uc.now()
	dbName := uc.db.DatabaseName()
	uc.logger.Infof("[%s] Starting backup...", dbName)

	running, err := uc.rt.IsRunning(ctx, uc.container)
	if err != nil {
		return nil, fmt.Errorf("inspect container: %w", err)
	}
	if !running {
		return nil, fmt.Errorf("container %s is not running", uc.container)
	}

	filename := fmt.Sprintf("%s_backup_%s.dump.gz", dbName, start.Format(backupTimeLayout))
	outPath := uc.localStorage.GetPath(filename)

	uc.logger.Infof("[%s] Dumping to: %s", dbName, outPath)

	// pg_dump's stdout is piped into the gzip writer; its exit status is
	// captured on its own so a broken dump cannot hide behind a compressor
	// that finished cleanly.
	pr, pw := io.Pipe()
	var (
		wg       sync.WaitGroup
		exitCode int
		dumpErr  error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		exitCode, dumpErr = uc.db.DumpTo(ctx, pw)
		pw.CloseWithError(dumpErr)
	}()

	compressErr := uc.compressor.CompressFrom(pr, outPath)
	// Unblock the dump goroutine if the compressor bailed out early.
	pr.CloseWithError(compressErr)
	wg.Wait()

	if dumpErr != nil || exitCode != 0 || compressErr != nil {
		uc.removePartial(outPath)
		if dumpErr != nil {
			return nil, fmt.Errorf("dump: %w", dumpErr)
		}
		if exitCode != 0 {
			return nil, fmt.Errorf("dump exited with code %d", exitCode)
		}
		return nil, fmt.Errorf("compress: %w", compressErr)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		uc.removePartial(outPath)
		return nil, fmt.Errorf("stat backup file: %w", err)
	}
	if info.Size() == 0 {
		uc.removePartial(outPath)
		return nil, fmt.Errorf("backup file is empty")
	}

	uc.logger.Infof("[%s] Backup created, size: %.2f MB",
		dbName, float64(info.Size())/(1024*1024))

	backup := &domain.Backup{
		Filename:     filename,
		FilePath:     outPath,
		Size:         info.Size(),
		CreatedAt:    start,
		DatabaseName: dbName,
	}

	if len(uc.uploadTargets) > 0 {
		uc.uploadToTargets(ctx, outPath, filename)
	}

	uc.logger.Infof("[%s] Backup completed in %s: %s",
		dbName, time.Since(start).Round(time.Second), filename)

	return backup, nil
}

func (uc *Backup) removePartial(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		uc.logger.Warnf("Failed to remove partial backup %s: %v", path, err)
	}
}

func (uc *Backup) uploadToTargets(ctx context.Context, filePath, filename string) {
	var wg sync.WaitGroup
	dbName := uc.db.DatabaseName()

	for _, target := range uc.uploadTargets {
		wg.Add(1)
		go func(t UploadTarget) {
			defer wg.Done()

			uc.logger.Infof("[%s] Uploading to %s...", dbName, t.Name)
			if err := t.Storage.Upload(ctx, filePath, filename); err != nil {
				uc.logger.Errorf("[%s] Failed to upload to %s: %v", dbName, t.Name, err)
			} else {
				uc.logger.Infof("[%s] Successfully uploaded to %s", dbName, t.Name)
			}
		}(target)
	}

	wg.Wait()
}
