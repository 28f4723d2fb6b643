package domain

import "io"

type Compressor interface {
	// CompressFrom gzips everything read from src into destPath.
	CompressFrom(src io.Reader, destPath string) error
}
