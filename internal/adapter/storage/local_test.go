package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLocalStorage(t *testing.T) {
	Convey("Given a LocalStorage", t, func() {
		ctx := context.Background()

		tempDir, err := os.MkdirTemp("", "local_storage_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		basePath := filepath.Join(tempDir, "backups")
		local, err := NewLocal(basePath)
		So(err, ShouldBeNil)

		Convey("New should create the backup directory", func() {
			info, err := os.Stat(basePath)
			So(err, ShouldBeNil)
			So(info.IsDir(), ShouldBeTrue)
		})

		Convey("Upload method", func() {
			sourcePath := filepath.Join(tempDir, "source.dump.gz")
			So(os.WriteFile(sourcePath, []byte("backup data"), 0644), ShouldBeNil)

			Convey("When uploading a file", func() {
				err := local.Upload(ctx, sourcePath, "IBSng_backup_2024-01-01_00-00-00.dump.gz")

				Convey("It should appear in the backup directory", func() {
					So(err, ShouldBeNil)
					data, err := os.ReadFile(local.GetPath("IBSng_backup_2024-01-01_00-00-00.dump.gz"))
					So(err, ShouldBeNil)
					So(string(data), ShouldEqual, "backup data")
				})
			})

			Convey("When the file is already at its destination", func() {
				destPath := local.GetPath("inplace.dump.gz")
				So(os.WriteFile(destPath, []byte("already here"), 0644), ShouldBeNil)

				err := local.Upload(ctx, destPath, "inplace.dump.gz")

				Convey("It should be a no-op", func() {
					So(err, ShouldBeNil)
					data, err := os.ReadFile(destPath)
					So(err, ShouldBeNil)
					So(string(data), ShouldEqual, "already here")
				})
			})

			Convey("When the source does not exist", func() {
				err := local.Upload(ctx, filepath.Join(tempDir, "missing"), "x.dump.gz")

				Convey("It should return an error", func() {
					So(err, ShouldNotBeNil)
				})
			})
		})

		Convey("List method", func() {
			So(os.WriteFile(local.GetPath("a.dump.gz"), []byte("a"), 0644), ShouldBeNil)
			So(os.WriteFile(local.GetPath("b.dump.gz"), []byte("b"), 0644), ShouldBeNil)
			So(os.MkdirAll(filepath.Join(basePath, "subdir"), 0755), ShouldBeNil)

			files, err := local.List(ctx)

			Convey("It should return only the files", func() {
				So(err, ShouldBeNil)
				So(files, ShouldHaveLength, 2)
				So(files, ShouldContain, "a.dump.gz")
				So(files, ShouldContain, "b.dump.gz")
			})
		})

		Convey("Delete method", func() {
			So(os.WriteFile(local.GetPath("doomed.dump.gz"), []byte("x"), 0644), ShouldBeNil)

			Convey("When deleting an existing file", func() {
				err := local.Delete(ctx, "doomed.dump.gz")

				Convey("The file should be gone", func() {
					So(err, ShouldBeNil)
					_, err := os.Stat(local.GetPath("doomed.dump.gz"))
					So(os.IsNotExist(err), ShouldBeTrue)
				})
			})

			Convey("When deleting a missing file", func() {
				err := local.Delete(ctx, "never-existed.dump.gz")

				Convey("It should return an error", func() {
					So(err, ShouldNotBeNil)
				})
			})
		})

		Convey("GetOldFiles method", func() {
			oldPath := local.GetPath("old.dump.gz")
			newPath := local.GetPath("new.dump.gz")
			So(os.WriteFile(oldPath, []byte("old"), 0644), ShouldBeNil)
			So(os.WriteFile(newPath, []byte("new"), 0644), ShouldBeNil)

			oldTime := time.Now().Add(-72 * time.Hour)
			So(os.Chtimes(oldPath, oldTime, oldTime), ShouldBeNil)

			files, err := local.GetOldFiles(ctx, time.Now().Add(-24*time.Hour))

			Convey("Only files older than the cutoff are returned", func() {
				So(err, ShouldBeNil)
				So(files, ShouldResemble, []string{"old.dump.gz"})
			})
		})
	})
}
