package storage

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/ramtinsoft/ibsguard/internal/config"
)

// GDriveStorage uploads backups into a shared Drive folder using a service
// account credentials file.
type GDriveStorage struct {
	service  *drive.Service
	folderID string
}

func NewGDrive(cfg *config.UploadTarget) (*GDriveStorage, error) {
	service, err := drive.NewService(context.Background(),
		option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &GDriveStorage{
		service:  service,
		folderID: cfg.FolderID,
	}, nil
}

func (g *GDriveStorage) Upload(ctx context.Context, localPath string, remoteName string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	meta := &drive.File{
		Name:    remoteName,
		Parents: []string{g.folderID},
	}

	if _, err := g.service.Files.Create(meta).Media(file).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to upload to gdrive: %w", err)
	}

	return nil
}

// query runs a Drive file search in the configured folder, following
// pagination to the end.
func (g *GDriveStorage) query(ctx context.Context, condition string) ([]*drive.File, error) {
	q := fmt.Sprintf("'%s' in parents and trashed=false", g.folderID)
	if condition != "" {
		q += " and " + condition
	}

	var files []*drive.File
	call := g.service.Files.List().Q(q).Fields("nextPageToken, files(id, name)").Context(ctx)
	err := call.Pages(ctx, func(page *drive.FileList) error {
		files = append(files, page.Files...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list drive files: %w", err)
	}

	return files, nil
}

func (g *GDriveStorage) List(ctx context.Context) ([]string, error) {
	files, err := g.query(ctx, "")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	return names, nil
}

func (g *GDriveStorage) Delete(ctx context.Context, remoteName string) error {
	escaped := strings.ReplaceAll(remoteName, "'", `\'`)
	files, err := g.query(ctx, fmt.Sprintf("name='%s'", escaped))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("file not found: %s", remoteName)
	}

	if err := g.service.Files.Delete(files[0].Id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

func (g *GDriveStorage) GetOldFiles(ctx context.Context, cutoffTime time.Time) ([]string, error) {
	files, err := g.query(ctx,
		fmt.Sprintf("createdTime < '%s'", cutoffTime.Format(time.RFC3339)))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	return names, nil
}
