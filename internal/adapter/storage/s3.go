package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3manager "github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	appconfig "github.com/ramtinsoft/ibsguard/internal/config"
)

// S3Storage pushes finished backups to an off-site bucket under an optional
// key prefix.
type S3Storage struct {
	client   *s3.Client
	uploader *s3manager.Uploader
	bucket   string
	prefix   string
}

func NewS3(cfg *appconfig.UploadTarget) (*S3Storage, error) {
	awsCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	return &S3Storage{
		client:   client,
		uploader: s3manager.NewUploader(client),
		bucket:   cfg.Bucket,
		prefix:   prefix,
	}, nil
}

func (s *S3Storage) keyFor(remoteName string) string {
	return path.Join(s.prefix, remoteName)
}

func (s *S3Storage) Upload(ctx context.Context, localPath string, remoteName string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.keyFor(remoteName)),
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	return nil
}

// listObjects walks all pages under the configured prefix.
func (s *S3Storage) listObjects(ctx context.Context) ([]types.Object, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	var objects []types.Object
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list S3 objects: %w", err)
		}
		objects = append(objects, page.Contents...)
	}

	return objects, nil
}

func (s *S3Storage) List(ctx context.Context) ([]string, error) {
	objects, err := s.listObjects(ctx)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, obj := range objects {
		if name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix); name != "" {
			files = append(files, name)
		}
	}

	return files, nil
}

func (s *S3Storage) Delete(ctx context.Context, remoteName string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.keyFor(remoteName)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}

	return nil
}

func (s *S3Storage) GetOldFiles(ctx context.Context, cutoffTime time.Time) ([]string, error) {
	objects, err := s.listObjects(ctx)
	if err != nil {
		return nil, err
	}

	var oldFiles []string
	for _, obj := range objects {
		if obj.LastModified == nil || !obj.LastModified.Before(cutoffTime) {
			continue
		}
		if name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix); name != "" {
			oldFiles = append(oldFiles, name)
		}
	}

	return oldFiles, nil
}
