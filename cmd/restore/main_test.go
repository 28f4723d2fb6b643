package main

import (
	"errors"
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/ramtinsoft/ibsguard/internal/usecase"
)

func TestReportFailure(t *testing.T) {
	Convey("Given restore failures", t, func() {
		Convey("A declined confirmation should exit 1", func() {
			So(reportFailure(usecase.ErrConfirmationDeclined), ShouldEqual, 1)
		})

		Convey("A wrapped declined confirmation should exit 1", func() {
			wrapped := fmt.Errorf("restore: %w", usecase.ErrConfirmationDeclined)
			So(reportFailure(wrapped), ShouldEqual, 1)
		})

		Convey("Any other failure should exit 1", func() {
			So(reportFailure(usecase.ErrUnknownFormat), ShouldEqual, 1)
			So(reportFailure(errors.New("copy archive into container: boom")), ShouldEqual, 1)
		})
	})
}
