package compressor

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
)

type GzipCompressor struct{}

func NewGzip() *GzipCompressor {
	return &GzipCompressor{}
}

// CompressFrom gzips everything read from src into destPath. Used to
// compress a dump stream on the fly instead of staging the raw dump on disk.
func (g *GzipCompressor) CompressFrom(src io.Reader, destPath string) error {
	destFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create dest file: %w", err)
	}
	defer destFile.Close()

	gzipWriter, err := gzip.NewWriterLevel(destFile, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("failed to create gzip writer: %w", err)
	}

	if _, err := io.Copy(gzipWriter, src); err != nil {
		gzipWriter.Close()
		return fmt.Errorf("failed to compress: %w", err)
	}

	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish gzip stream: %w", err)
	}

	return destFile.Close()
}
