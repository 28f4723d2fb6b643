package domain

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDetectFormat(t *testing.T) {
	Convey("Given dump file headers", t, func() {
		Convey("A PGDMP magic is classified as the custom archive format", func() {
			So(DetectFormat([]byte("PGDMP")), ShouldEqual, FormatCustom)
		})

		Convey("A leading SQL comment is classified as plain SQL", func() {
			So(DetectFormat([]byte("--\n  ")), ShouldEqual, FormatPlainSQL)
		})

		Convey("A header containing SET is classified as plain SQL", func() {
			So(DetectFormat([]byte("SET s")), ShouldEqual, FormatPlainSQL)
			So(DetectFormat([]byte("\nSET ")), ShouldEqual, FormatPlainSQL)
		})

		Convey("Arbitrary binary bytes are unknown", func() {
			So(DetectFormat([]byte{0x00, 0x01, 0x02, 0x03, 0x04}), ShouldEqual, FormatUnknown)
		})

		Convey("An empty header is unknown", func() {
			So(DetectFormat(nil), ShouldEqual, FormatUnknown)
		})

		Convey("The magic must be a prefix, not merely present", func() {
			So(DetectFormat([]byte(" PGDM")), ShouldEqual, FormatUnknown)
		})

		Convey("String names are stable", func() {
			So(FormatCustom.String(), ShouldEqual, "custom")
			So(FormatPlainSQL.String(), ShouldEqual, "plain-sql")
			So(FormatUnknown.String(), ShouldEqual, "unknown")
		})
	})
}
