package domain

import (
	"context"
	"io"
)

// ExecResult is the captured outcome of a command run inside the container.
type ExecResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// ContainerRuntime is the slice of the container engine the backup and
// restore flows need: run a command inside the target container, push a file
// into it, and bounce it.
type ContainerRuntime interface {
	IsRunning(ctx context.Context, containerName string) (bool, error)

	// Exec runs cmd inside the container and returns its demultiplexed
	// output and exit code. A non-zero exit code is not an error; callers
	// decide what it means.
	Exec(ctx context.Context, containerName string, cmd []string) (*ExecResult, error)

	// ExecStream runs cmd and streams its raw stdout into w, returning the
	// command's exit code and captured stderr. Used for dumps, where stdout
	// is binary data that must not be buffered whole in memory.
	ExecStream(ctx context.Context, containerName string, cmd []string, w io.Writer) (int, []byte, error)

	// CopyTo copies a host file into destDir inside the container, keeping
	// its base name.
	CopyTo(ctx context.Context, containerName, hostPath, destDir string) error

	Restart(ctx context.Context, containerName string) error
}
