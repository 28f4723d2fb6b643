package bot

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/ramtinsoft/ibsguard/internal/domain"
	"github.com/ramtinsoft/ibsguard/internal/usecase"
)

func TestHasAllowedExtension(t *testing.T) {
	Convey("Given uploaded file names", t, func() {
		Convey("Backup archive names should be accepted", func() {
			So(hasAllowedExtension("IBSng_backup_2024-05-17_10-30-00.dump.gz"), ShouldBeTrue)
			So(hasAllowedExtension("legacy.bak"), ShouldBeTrue)
			So(hasAllowedExtension("dump.SQL"), ShouldBeTrue)
		})

		Convey("Anything else should be rejected", func() {
			So(hasAllowedExtension("notes.txt"), ShouldBeFalse)
			So(hasAllowedExtension("archive.tar.xz"), ShouldBeFalse)
			So(hasAllowedExtension(""), ShouldBeFalse)
		})
	})
}

func TestFormatSize(t *testing.T) {
	Convey("Given byte counts", t, func() {
		So(formatSize(512), ShouldEqual, "512 B")
		So(formatSize(2048), ShouldEqual, "2.0 KB")
		So(formatSize(3*1024*1024), ShouldEqual, "3.0 MB")
	})
}

func TestSummarizeRestore(t *testing.T) {
	Convey("Given restore reports", t, func() {
		Convey("A clean custom-format restore", func() {
			msg := summarizeRestore(&usecase.RestoreReport{
				Format:         domain.FormatCustom,
				ServiceRunning: true,
			})

			So(msg, ShouldContainSubstring, "custom")
			So(msg, ShouldContainSubstring, "Service is up")
		})

		Convey("A plain-SQL restore with a failed first pass", func() {
			msg := summarizeRestore(&usecase.RestoreReport{
				Format:         domain.FormatPlainSQL,
				PassErrors:     []error{errors.New("syntax error"), nil},
				ServiceRunning: false,
			})

			So(msg, ShouldContainSubstring, "SQL pass 1 reported errors")
			So(msg, ShouldNotContainSubstring, "SQL pass 2 reported errors")
			So(msg, ShouldContainSubstring, "did not come back")
		})
	})
}
