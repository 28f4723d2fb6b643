package runtime

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"

	"github.com/ramtinsoft/ibsguard/internal/domain"
)

// Docker implements domain.ContainerRuntime against the Docker Engine API.
type Docker struct {
	client      *client.Client
	stopTimeout int
}

func NewDocker(stopTimeoutSeconds int) (*Docker, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	return &Docker{client: cli, stopTimeout: stopTimeoutSeconds}, nil
}

func (d *Docker) Close() error {
	return d.client.Close()
}

func (d *Docker) IsRunning(ctx context.Context, containerName string) (bool, error) {
	inspect, err := d.client.ContainerInspect(ctx, containerName)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to inspect container %s: %w", containerName, err)
	}
	return inspect.State != nil && inspect.State.Running, nil
}

// Exec runs cmd inside the container, buffering demultiplexed stdout and
// stderr. The command's exit code is reported in the result, not as an error.
func (d *Docker) Exec(ctx context.Context, containerName string, cmd []string) (*domain.ExecResult, error) {
	var stdout, stderr bytes.Buffer
	exitCode, err := d.exec(ctx, containerName, cmd, &stdout, &stderr)
	if err != nil {
		return nil, err
	}
	return &domain.ExecResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode,
	}, nil
}

func (d *Docker) ExecStream(ctx context.Context, containerName string, cmd []string, w io.Writer) (int, []byte, error) {
	var stderr bytes.Buffer
	exitCode, err := d.exec(ctx, containerName, cmd, w, &stderr)
	if err != nil {
		return 0, stderr.Bytes(), err
	}
	return exitCode, stderr.Bytes(), nil
}

func (d *Docker) exec(ctx context.Context, containerName string, cmd []string, stdout, stderr io.Writer) (int, error) {
	execResp, err := d.client.ContainerExecCreate(ctx, containerName, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create exec in %s: %w", containerName, err)
	}

	attachResp, err := d.client.ContainerExecAttach(ctx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to attach to exec: %w", err)
	}
	defer attachResp.Close()

	// The attached stream multiplexes stdout and stderr; stdcopy splits it.
	if _, err := stdcopy.StdCopy(stdout, stderr, attachResp.Reader); err != nil {
		return 0, fmt.Errorf("failed to read exec output: %w", err)
	}

	inspect, err := d.client.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect exec result: %w", err)
	}

	return inspect.ExitCode, nil
}

// CopyTo copies a host file into destDir inside the container. The engine
// API only accepts tar streams, so the file is wrapped in a single-entry
// archive.
func (d *Docker) CopyTo(ctx context.Context, containerName, hostPath, destDir string) error {
	file, err := os.Open(hostPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", hostPath, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", hostPath, err)
	}

	pr, pw := io.Pipe()
	go func() {
		tw := tar.NewWriter(pw)
		hdr := &tar.Header{
			Name: info.Name(),
			Mode: 0644,
			Size: info.Size(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(tw, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(tw.Close())
	}()

	if err := d.client.CopyToContainer(ctx, containerName, destDir, pr, container.CopyToContainerOptions{}); err != nil {
		return fmt.Errorf("failed to copy %s into %s: %w", hostPath, containerName, err)
	}

	return nil
}

func (d *Docker) Restart(ctx context.Context, containerName string) error {
	timeout := d.stopTimeout
	err := d.client.ContainerRestart(ctx, containerName, container.StopOptions{Timeout: &timeout})
	if err != nil {
		return fmt.Errorf("failed to restart container %s: %w", containerName, err)
	}
	return nil
}

// PullImage pulls an image, draining the progress stream to completion.
func (d *Docker) PullImage(ctx context.Context, imageRef string) error {
	reader, err := d.client.ImagePull(ctx, imageRef, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", imageRef, err)
	}
	defer reader.Close()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to read pull progress for %s: %w", imageRef, err)
	}
	return nil
}

// ContainerSpec describes the container ibsguard-setup provisions.
type ContainerSpec struct {
	Name  string
	Image string
	// Ports are "hostPort:containerPort[/proto]" bindings.
	Ports []string
	// Binds are volume mounts in Docker -v syntax.
	Binds []string
}

// CreateContainer creates (but does not start) a container with an
// always-restart policy.
func (d *Docker) CreateContainer(ctx context.Context, spec ContainerSpec) (string, error) {
	exposedPorts, portBindings, err := nat.ParsePortSpecs(spec.Ports)
	if err != nil {
		return "", fmt.Errorf("invalid port specs: %w", err)
	}

	containerConfig := &container.Config{
		Image:        spec.Image,
		ExposedPorts: exposedPorts,
	}
	hostConfig := &container.HostConfig{
		PortBindings:  portBindings,
		Binds:         spec.Binds,
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyAlways},
	}

	resp, err := d.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, spec.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create container %s: %w", spec.Name, err)
	}
	return resp.ID, nil
}

func (d *Docker) StartContainer(ctx context.Context, containerID string) error {
	if err := d.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start container %s: %w", containerID, err)
	}
	return nil
}
