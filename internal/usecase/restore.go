package usecase

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ramtinsoft/ibsguard/internal/domain"
)

var (
	// ErrConfirmationDeclined is returned when the operator does not
	// approve the restore. Nothing has been touched at that point.
	ErrConfirmationDeclined = errors.New("restore not confirmed")

	// ErrUnknownFormat is returned when the archive header matches no known
	// dump format. The database has not been touched at that point.
	ErrUnknownFormat = errors.New("unrecognized backup format")
)

// RestoreReport is the outcome of a completed restore. Completion and the
// post-restart service state are reported separately: a restore that applied
// cleanly but whose service did not come back is still a completed restore.
type RestoreReport struct {
	Format domain.ArchiveFormat

	// PassErrors holds the per-pass psql outcome for plain-SQL restores
	// (always two entries, nil meaning the pass exited cleanly).
	PassErrors []error

	ServiceRunning bool
}

// Restore recreates the target database from a backup archive. The existing
// database is always dropped first; there is no incremental or merge restore.
type Restore struct {
	rt        domain.ContainerRuntime
	db        domain.DatabaseAdmin
	confirmer domain.Confirmer
	logger    Logger

	container   string
	tempDir     string
	serviceWait time.Duration

	sleep func(time.Duration)
}

func NewRestore(
	rt domain.ContainerRuntime,
	db domain.DatabaseAdmin,
	confirmer domain.Confirmer,
	logger Logger,
	container string,
	tempDir string,
	serviceWait time.Duration,
) *Restore {
	return &Restore{
		rt:          rt,
		db:          db,
		confirmer:   confirmer,
		logger:      logger,
		container:   container,
		tempDir:     tempDir,
		serviceWait: serviceWait,
		sleep:       time.Sleep,
	}
}

// Execute walks the restore pipeline:
//
//	confirm -> copy in -> detect compression -> detect format ->
//	prepare database -> apply -> finalize
//
// Every failure before finalize aborts with an error and runs no later
// stage. There is no rollback: a failed apply leaves the database created
// but empty or partially populated.
func (uc *Restore) Execute(ctx context.Context, archivePath string) (*RestoreReport, error) {
	ok, err := uc.confirmer.Confirm(fmt.Sprintf(
		"This will DROP and recreate database %q from %s. Continue?",
		uc.db.DatabaseName(), filepath.Base(archivePath)))
	if err != nil {
		return nil, fmt.Errorf("confirmation: %w", err)
	}
	if !ok {
		return nil, ErrConfirmationDeclined
	}

	containerPath := path.Join(uc.tempDir, filepath.Base(archivePath))

	uc.logger.Infof("Copying %s into %s:%s", archivePath, uc.container, containerPath)
	if err := uc.rt.CopyTo(ctx, uc.container, archivePath, uc.tempDir); err != nil {
		return nil, fmt.Errorf("copy archive into container: %w", err)
	}

	tempFiles := []string{containerPath}
	defer uc.cleanup(ctx, &tempFiles)

	dataPath, err := uc.maybeDecompress(ctx, containerPath, &tempFiles)
	if err != nil {
		return nil, err
	}

	header, err := uc.db.ReadHeader(ctx, dataPath, domain.HeaderLen)
	if err != nil {
		return nil, fmt.Errorf("read archive header: %w", err)
	}

	format := domain.DetectFormat(header)
	if format == domain.FormatUnknown {
		return nil, fmt.Errorf("%w (header %q)", ErrUnknownFormat, header)
	}
	uc.logger.Infof("Detected %s format archive", format)

	if err := uc.prepareDatabase(ctx); err != nil {
		return nil, err
	}

	report := &RestoreReport{Format: format}

	switch format {
	case domain.FormatCustom:
		if err := uc.applyCustom(ctx, dataPath); err != nil {
			return nil, err
		}
	case domain.FormatPlainSQL:
		report.PassErrors = uc.applyPlainSQL(ctx, dataPath)
	}

	uc.finalize(ctx, report)
	return report, nil
}

func (uc *Restore) maybeDecompress(ctx context.Context, containerPath string, tempFiles *[]string) (string, error) {
	fileType, err := uc.db.FileType(ctx, containerPath)
	if err != nil {
		return "", fmt.Errorf("inspect archive type: %w", err)
	}

	if !strings.Contains(fileType, "gzip") {
		return containerPath, nil
	}

	plainPath := containerPath + ".unpacked"
	uc.logger.Infof("Archive is gzip-compressed, decompressing to %s", plainPath)
	if err := uc.db.Decompress(ctx, containerPath, plainPath); err != nil {
		return "", fmt.Errorf("decompress archive: %w", err)
	}
	*tempFiles = append(*tempFiles, plainPath)
	return plainPath, nil
}

// prepareDatabase guarantees apply starts against a fresh, empty database.
// Terminate and drop are best-effort: a database that is already gone is a
// fine starting point. Recreate failure is fatal.
func (uc *Restore) prepareDatabase(ctx context.Context) error {
	if err := uc.db.TerminateConnections(ctx); err != nil {
		uc.logger.Warnf("Could not terminate connections: %v", err)
	}
	if err := uc.db.DropDatabase(ctx); err != nil {
		uc.logger.Warnf("Could not drop database: %v", err)
	}
	if err := uc.db.CreateDatabase(ctx); err != nil {
		return fmt.Errorf("recreate database: %w", err)
	}
	uc.logger.Infof("Database %s recreated", uc.db.DatabaseName())
	return nil
}

func (uc *Restore) applyCustom(ctx context.Context, dataPath string) error {
	uc.logger.Infof("Restoring custom-format archive with pg_restore")
	output, err := uc.db.RestoreArchive(ctx, dataPath)
	if output != "" {
		uc.logger.Infof("pg_restore output:\n%s", output)
	}
	if err != nil {
		return fmt.Errorf("apply archive: %w", err)
	}
	return nil
}

// applyPlainSQL replays the script twice, unconditionally. Plain dumps can
// contain forward references that fail on the first pass and succeed once
// the referenced objects exist; the second pass re-runs the whole script and
// harmlessly re-fails statements that already applied. Each pass's outcome
// is reported on its own.
func (uc *Restore) applyPlainSQL(ctx context.Context, dataPath string) []error {
	if err := uc.db.EnsurePlpgsql(ctx); err != nil {
		uc.logger.Warnf("Could not install plpgsql (may already exist): %v", err)
	}

	passErrors := make([]error, 2)
	for pass := 0; pass < 2; pass++ {
		uc.logger.Infof("Applying SQL script, pass %d of 2", pass+1)
		output, err := uc.db.RunScript(ctx, dataPath)
		if output != "" {
			uc.logger.Infof("psql pass %d output:\n%s", pass+1, output)
		}
		if err != nil {
			uc.logger.Warnf("psql pass %d finished with errors: %v", pass+1, err)
		}
		passErrors[pass] = err
	}
	return passErrors
}

// finalize restarts the container and probes it once after a fixed wait. A
// restart or probe failure does not fail the restore; it is reported through
// ServiceRunning.
func (uc *Restore) finalize(ctx context.Context, report *RestoreReport) {
	uc.logger.Infof("Restarting container %s", uc.container)
	if err := uc.rt.Restart(ctx, uc.container); err != nil {
		uc.logger.Errorf("Failed to restart container: %v", err)
		return
	}

	uc.sleep(uc.serviceWait)

	running, err := uc.rt.IsRunning(ctx, uc.container)
	if err != nil {
		uc.logger.Errorf("Failed to probe container state: %v", err)
		return
	}
	report.ServiceRunning = running
	if running {
		uc.logger.Infof("Container %s is running", uc.container)
	} else {
		uc.logger.Errorf("Container %s did not come back up", uc.container)
	}
}

func (uc *Restore) cleanup(ctx context.Context, tempFiles *[]string) {
	if err := uc.db.RemoveFiles(ctx, *tempFiles...); err != nil {
		uc.logger.Warnf("Failed to remove temporary files: %v", err)
	}
}
