package domain

import (
	"context"
	"io"
)

// DatabaseAdmin covers the PostgreSQL operations run inside the IBSng
// container. Best-effort semantics (terminate, drop, extension install) are
// the caller's responsibility; every method reports its real outcome.
type DatabaseAdmin interface {
	// Ready probes the server with pg_isready.
	Ready(ctx context.Context) error

	// DumpTo runs pg_dump in custom format, streaming the archive into w.
	// The returned int is pg_dump's own exit code, captured separately from
	// whatever consumes the stream.
	DumpTo(ctx context.Context, w io.Writer) (int, error)

	TerminateConnections(ctx context.Context) error
	DropDatabase(ctx context.Context) error
	CreateDatabase(ctx context.Context) error

	// RestoreArchive replays a custom-format archive with pg_restore.
	RestoreArchive(ctx context.Context, containerPath string) (string, error)

	// RunScript replays a plain-text SQL file with psql and returns its
	// combined output so each pass can be logged on its own.
	RunScript(ctx context.Context, containerPath string) (string, error)

	// EnsurePlpgsql installs the plpgsql extension the dump may rely on.
	// Idempotent when already installed.
	EnsurePlpgsql(ctx context.Context) error

	// FileType reports `file --brief` output for a path in the container.
	FileType(ctx context.Context, containerPath string) (string, error)

	// Decompress gunzips src into dest, both inside the container.
	Decompress(ctx context.Context, src, dest string) error

	// ReadHeader returns the first n bytes of a file in the container.
	ReadHeader(ctx context.Context, containerPath string, n int) ([]byte, error)

	// RemoveFiles deletes in-container paths, ignoring missing ones.
	RemoveFiles(ctx context.Context, paths ...string) error

	DatabaseName() string
}
