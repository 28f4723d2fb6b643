package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

// memStorage is an in-memory Storage whose GetOldFiles may be disabled to
// force the filename-timestamp fallback.
type memStorage struct {
	files          map[string]time.Time
	supportsOldAge bool
}

func newMemStorage(supportsOldAge bool) *memStorage {
	return &memStorage{files: map[string]time.Time{}, supportsOldAge: supportsOldAge}
}

func (m *memStorage) Upload(ctx context.Context, localPath, remoteName string) error {
	m.files[remoteName] = time.Now()
	return nil
}

func (m *memStorage) List(ctx context.Context) ([]string, error) {
	var names []string
	for name := range m.files {
		names = append(names, name)
	}
	return names, nil
}

func (m *memStorage) Delete(ctx context.Context, remoteName string) error {
	if _, ok := m.files[remoteName]; !ok {
		return fmt.Errorf("no such file: %s", remoteName)
	}
	delete(m.files, remoteName)
	return nil
}

func (m *memStorage) GetOldFiles(ctx context.Context, cutoff time.Time) ([]string, error) {
	if !m.supportsOldAge {
		return nil, fmt.Errorf("not supported")
	}
	var old []string
	for name, mtime := range m.files {
		if mtime.Before(cutoff) {
			old = append(old, name)
		}
	}
	return old, nil
}

func (m *memStorage) GetPath(filename string) string { return "/backups/" + filename }

func TestCleanup(t *testing.T) {
	Convey("Given a cleanup use case with 3-day retention", t, func() {
		ctx := context.Background()

		Convey("When the storage reports file ages directly", func() {
			local := newMemStorage(true)
			local.files["IBSng_backup_2024-01-01_00-00-00.dump.gz"] = time.Now().AddDate(0, 0, -10)
			local.files["IBSng_backup_2099-01-01_00-00-00.dump.gz"] = time.Now()

			uc := NewCleanup(local, nil, nopLogger{}, 3)
			So(uc.Execute(ctx), ShouldBeNil)

			Convey("Only the expired backup is deleted", func() {
				_, oldExists := local.files["IBSng_backup_2024-01-01_00-00-00.dump.gz"]
				_, newExists := local.files["IBSng_backup_2099-01-01_00-00-00.dump.gz"]
				So(oldExists, ShouldBeFalse)
				So(newExists, ShouldBeTrue)
			})
		})

		Convey("When the storage cannot report ages", func() {
			remote := newMemStorage(false)
			remote.files["IBSng_backup_2020-06-15_08-00-00.dump.gz"] = time.Time{}
			remote.files["unparseable-name.dump.gz"] = time.Time{}

			local := newMemStorage(true)
			uc := NewCleanup(local, []UploadTarget{{Name: "remote", Storage: remote}}, nopLogger{}, 3)
			So(uc.Execute(ctx), ShouldBeNil)

			Convey("It falls back to the timestamp embedded in the filename", func() {
				_, expiredExists := remote.files["IBSng_backup_2020-06-15_08-00-00.dump.gz"]
				So(expiredExists, ShouldBeFalse)
			})

			Convey("Files without a parseable timestamp are left alone", func() {
				_, stillThere := remote.files["unparseable-name.dump.gz"]
				So(stillThere, ShouldBeTrue)
			})
		})
	})
}

func TestExtractTimestamp(t *testing.T) {
	Convey("Given backup filenames", t, func() {
		Convey("A standard backup name yields its embedded creation time", func() {
			ts, err := extractTimestamp("IBSng_backup_2024-05-17_10-30-00.dump.gz")
			So(err, ShouldBeNil)
			So(ts, ShouldEqual, time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC))
		})

		Convey("A name without a timestamp is rejected", func() {
			_, err := extractTimestamp("random-file.txt")
			So(err, ShouldNotBeNil)
		})
	})
}
