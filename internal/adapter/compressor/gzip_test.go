package compressor

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGzipCompressor(t *testing.T) {
	Convey("Given a GzipCompressor", t, func() {
		compressor := NewGzip()

		tempDir, err := os.MkdirTemp("", "gzip_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		Convey("CompressFrom method", func() {
			Convey("When compressing a stream", func() {
				content := "PGDMP pretend dump content"
				outputFile := filepath.Join(tempDir, "dump.gz")

				err := compressor.CompressFrom(strings.NewReader(content), outputFile)

				Convey("It should produce a valid gzip file with the same content", func() {
					So(err, ShouldBeNil)

					gzipFile, err := os.Open(outputFile)
					So(err, ShouldBeNil)
					defer gzipFile.Close()

					gzipReader, err := gzip.NewReader(gzipFile)
					So(err, ShouldBeNil)
					defer gzipReader.Close()

					var decompressed bytes.Buffer
					_, err = decompressed.ReadFrom(gzipReader)
					So(err, ShouldBeNil)
					So(decompressed.String(), ShouldEqual, content)
				})
			})

			Convey("When the destination cannot be created", func() {
				err := compressor.CompressFrom(strings.NewReader("x"),
					filepath.Join(tempDir, "no", "such", "dir", "out.gz"))

				Convey("It should return an error", func() {
					So(err, ShouldNotBeNil)
				})
			})
		})

		Convey("When compressing an empty stream", func() {
			outputFile := filepath.Join(tempDir, "empty.gz")
			err := compressor.CompressFrom(strings.NewReader(""), outputFile)

			Convey("The file should still be a valid gzip stream", func() {
				So(err, ShouldBeNil)

				gzipFile, err := os.Open(outputFile)
				So(err, ShouldBeNil)
				defer gzipFile.Close()

				gzipReader, err := gzip.NewReader(gzipFile)
				So(err, ShouldBeNil)
				defer gzipReader.Close()

				var decompressed bytes.Buffer
				_, err = decompressed.ReadFrom(gzipReader)
				So(err, ShouldBeNil)
				So(decompressed.Len(), ShouldEqual, 0)
			})
		})
	})
}
