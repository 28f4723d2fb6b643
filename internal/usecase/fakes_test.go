package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ramtinsoft/ibsguard/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{})  {}

type fakeRuntime struct {
	running      bool
	runningErr   error
	copyErr      error
	restartErr   error
	copyCalls    int
	restartCalls int
}

func (f *fakeRuntime) IsRunning(ctx context.Context, name string) (bool, error) {
	return f.running, f.runningErr
}

func (f *fakeRuntime) Exec(ctx context.Context, name string, cmd []string) (*domain.ExecResult, error) {
	return &domain.ExecResult{}, nil
}

func (f *fakeRuntime) ExecStream(ctx context.Context, name string, cmd []string, w io.Writer) (int, []byte, error) {
	return 0, nil, nil
}

func (f *fakeRuntime) CopyTo(ctx context.Context, name, hostPath, destDir string) error {
	f.copyCalls++
	return f.copyErr
}

func (f *fakeRuntime) Restart(ctx context.Context, name string) error {
	f.restartCalls++
	return f.restartErr
}

// fakeAdmin records which database operations ran, in order.
type fakeAdmin struct {
	calls []string

	dumpData []byte
	dumpExit int
	dumpErr  error

	fileType    string
	fileTypeErr error
	header      []byte
	headerErr   error

	terminateErr error
	dropErr      error
	createErr    error

	restoreOut string
	restoreErr error

	scriptOut  string
	scriptErrs []error

	removed [][]string
}

func (f *fakeAdmin) DatabaseName() string { return "IBSng" }

func (f *fakeAdmin) Ready(ctx context.Context) error {
	f.calls = append(f.calls, "ready")
	return nil
}

func (f *fakeAdmin) DumpTo(ctx context.Context, w io.Writer) (int, error) {
	f.calls = append(f.calls, "dump")
	if len(f.dumpData) > 0 {
		if _, err := w.Write(f.dumpData); err != nil {
			return 0, err
		}
	}
	return f.dumpExit, f.dumpErr
}

func (f *fakeAdmin) TerminateConnections(ctx context.Context) error {
	f.calls = append(f.calls, "terminate")
	return f.terminateErr
}

func (f *fakeAdmin) DropDatabase(ctx context.Context) error {
	f.calls = append(f.calls, "drop")
	return f.dropErr
}

func (f *fakeAdmin) CreateDatabase(ctx context.Context) error {
	f.calls = append(f.calls, "create")
	return f.createErr
}

func (f *fakeAdmin) RestoreArchive(ctx context.Context, containerPath string) (string, error) {
	f.calls = append(f.calls, "restore-archive")
	return f.restoreOut, f.restoreErr
}

func (f *fakeAdmin) RunScript(ctx context.Context, containerPath string) (string, error) {
	pass := 0
	for _, c := range f.calls {
		if c == "run-script" {
			pass++
		}
	}
	f.calls = append(f.calls, "run-script")
	var err error
	if pass < len(f.scriptErrs) {
		err = f.scriptErrs[pass]
	}
	return f.scriptOut, err
}

func (f *fakeAdmin) EnsurePlpgsql(ctx context.Context) error {
	f.calls = append(f.calls, "plpgsql")
	return nil
}

func (f *fakeAdmin) FileType(ctx context.Context, containerPath string) (string, error) {
	f.calls = append(f.calls, "file-type")
	return f.fileType, f.fileTypeErr
}

func (f *fakeAdmin) Decompress(ctx context.Context, src, dest string) error {
	f.calls = append(f.calls, "decompress")
	return nil
}

func (f *fakeAdmin) ReadHeader(ctx context.Context, containerPath string, n int) ([]byte, error) {
	f.calls = append(f.calls, "read-header")
	return f.header, f.headerErr
}

func (f *fakeAdmin) RemoveFiles(ctx context.Context, paths ...string) error {
	f.calls = append(f.calls, "remove-files")
	f.removed = append(f.removed, paths)
	return nil
}

func (f *fakeAdmin) called(name string) bool {
	for _, c := range f.calls {
		if c == name {
			return true
		}
	}
	return false
}

func (f *fakeAdmin) countCalls(name string) int {
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

type fakeConfirmer struct {
	answer bool
	err    error
	asked  int
}

func (f *fakeConfirmer) Confirm(prompt string) (bool, error) {
	f.asked++
	return f.answer, f.err
}

type dirStorage struct {
	base string
}

func (d dirStorage) Upload(ctx context.Context, localPath, remoteName string) error { return nil }
func (d dirStorage) List(ctx context.Context) ([]string, error)                     { return nil, nil }
func (d dirStorage) Delete(ctx context.Context, remoteName string) error {
	return os.Remove(d.GetPath(remoteName))
}
func (d dirStorage) GetOldFiles(ctx context.Context, cutoff time.Time) ([]string, error) {
	return nil, fmt.Errorf("not supported")
}
func (d dirStorage) GetPath(filename string) string { return d.base + "/" + filename }
