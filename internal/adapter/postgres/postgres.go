package postgres

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ramtinsoft/ibsguard/internal/config"
	"github.com/ramtinsoft/ibsguard/internal/domain"
)

// Admin implements domain.DatabaseAdmin by running the PostgreSQL client
// tools inside the IBSng container.
type Admin struct {
	rt        domain.ContainerRuntime
	container string
	superuser string
	owner     string
	database  string
}

func NewAdmin(rt domain.ContainerRuntime, containerName string, cfg config.DatabaseConfig) *Admin {
	return &Admin{
		rt:        rt,
		container: containerName,
		superuser: cfg.Superuser,
		owner:     cfg.User,
		database:  cfg.Name,
	}
}

func (a *Admin) DatabaseName() string {
	return a.database
}

func (a *Admin) Ready(ctx context.Context) error {
	res, err := a.rt.Exec(ctx, a.container, []string{"pg_isready", "-U", a.superuser})
	if err != nil {
		return fmt.Errorf("pg_isready: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("postgres not ready: %s", strings.TrimSpace(string(res.Stdout)))
	}
	return nil
}

// DumpTo streams a custom-format pg_dump into w and returns pg_dump's own
// exit code. The error carries stderr when the tool itself failed.
func (a *Admin) DumpTo(ctx context.Context, w io.Writer) (int, error) {
	cmd := []string{"pg_dump", "-U", a.superuser, "--format=custom", a.database}

	exitCode, stderr, err := a.rt.ExecStream(ctx, a.container, cmd, w)
	if err != nil {
		return exitCode, fmt.Errorf("pg_dump: %w", err)
	}
	if exitCode != 0 {
		return exitCode, fmt.Errorf("pg_dump exited with code %d: %s", exitCode, strings.TrimSpace(string(stderr)))
	}
	return exitCode, nil
}

func (a *Admin) TerminateConnections(ctx context.Context) error {
	query := fmt.Sprintf(
		"SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = '%s' AND pid <> pg_backend_pid();",
		a.database,
	)
	return a.run(ctx, "terminate connections",
		[]string{"psql", "-U", a.superuser, "-d", "postgres", "-c", query})
}

func (a *Admin) DropDatabase(ctx context.Context) error {
	return a.run(ctx, "drop database",
		[]string{"dropdb", "-U", a.superuser, "--if-exists", a.database})
}

func (a *Admin) CreateDatabase(ctx context.Context) error {
	return a.run(ctx, "create database",
		[]string{"createdb", "-U", a.superuser, "-O", a.owner, a.database})
}

func (a *Admin) RestoreArchive(ctx context.Context, containerPath string) (string, error) {
	res, err := a.rt.Exec(ctx, a.container,
		[]string{"pg_restore", "-U", a.superuser, "-d", a.database, containerPath})
	if err != nil {
		return "", fmt.Errorf("pg_restore: %w", err)
	}
	output := combinedOutput(res)
	if res.ExitCode != 0 {
		return output, fmt.Errorf("pg_restore exited with code %d", res.ExitCode)
	}
	return output, nil
}

func (a *Admin) RunScript(ctx context.Context, containerPath string) (string, error) {
	res, err := a.rt.Exec(ctx, a.container,
		[]string{"psql", "-U", a.superuser, "-d", a.database, "-f", containerPath})
	if err != nil {
		return "", fmt.Errorf("psql: %w", err)
	}
	output := combinedOutput(res)
	if res.ExitCode != 0 {
		return output, fmt.Errorf("psql exited with code %d", res.ExitCode)
	}
	return output, nil
}

func (a *Admin) EnsurePlpgsql(ctx context.Context) error {
	return a.run(ctx, "install plpgsql",
		[]string{"psql", "-U", a.superuser, "-d", a.database, "-c", "CREATE EXTENSION IF NOT EXISTS plpgsql;"})
}

func (a *Admin) FileType(ctx context.Context, containerPath string) (string, error) {
	res, err := a.rt.Exec(ctx, a.container, []string{"file", "--brief", containerPath})
	if err != nil {
		return "", fmt.Errorf("file: %w", err)
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("file exited with code %d: %s", res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}

func (a *Admin) Decompress(ctx context.Context, src, dest string) error {
	return a.run(ctx, "decompress",
		[]string{"sh", "-c", fmt.Sprintf("gunzip -c %q > %q", src, dest)})
}

func (a *Admin) ReadHeader(ctx context.Context, containerPath string, n int) ([]byte, error) {
	res, err := a.rt.Exec(ctx, a.container, []string{"head", "-c", strconv.Itoa(n), containerPath})
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("read header exited with code %d: %s", res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}
	return res.Stdout, nil
}

func (a *Admin) RemoveFiles(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	return a.run(ctx, "remove files", append([]string{"rm", "-f"}, paths...))
}

func (a *Admin) run(ctx context.Context, what string, cmd []string) error {
	res, err := a.rt.Exec(ctx, a.container, cmd)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%s exited with code %d: %s", what, res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}
	return nil
}

func combinedOutput(res *domain.ExecResult) string {
	if len(res.Stderr) == 0 {
		return string(res.Stdout)
	}
	return string(res.Stdout) + string(res.Stderr)
}
