package scoring_test

import (
	"testing"

	"github.com/okian/kam/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestProRatedAch(t *testing.T) {
	Convey("Given potential and last-30-days values", t, func() {
		Convey("Half the potential is 50", func() {
			So(scoring.ProRatedAch(50, 100), ShouldEqual, 50.0)
		})

		Convey("Zero or negative potential yields 0", func() {
			So(scoring.ProRatedAch(50, 0), ShouldEqual, 0)
			So(scoring.ProRatedAch(50, -10), ShouldEqual, 0)
		})

		Convey("The result is rounded to two decimals", func() {
			So(scoring.ProRatedAch(1, 3), ShouldEqual, 33.33)
			So(scoring.ProRatedAch(2, 3), ShouldEqual, 66.67)
		})

		Convey("Halves round away from zero", func() {
			So(scoring.Round2(-0.125), ShouldEqual, -0.13)
			So(scoring.Round2(0.125), ShouldEqual, 0.13)
		})

		Convey("The same inputs always give the same output", func() {
			So(scoring.ProRatedAch(123.456, 789.1), ShouldEqual, scoring.ProRatedAch(123.456, 789.1))
		})
	})
}

func TestBands(t *testing.T) {
	Convey("Given the underperforming threshold", t, func() {
		So(scoring.IsUnderperforming(49.99), ShouldBeTrue)
		So(scoring.IsUnderperforming(50), ShouldBeFalse)
		So(scoring.Classify(10), ShouldEqual, scoring.BandUnderperforming)
		So(scoring.Classify(75), ShouldEqual, scoring.BandGood)

		So(scoring.BandAll.Matches(1), ShouldBeTrue)
		So(scoring.BandGood.Matches(50), ShouldBeTrue)
		So(scoring.BandUnderperforming.Matches(50), ShouldBeFalse)

		b, ok := scoring.ParseBand("good")
		So(ok, ShouldBeTrue)
		So(b, ShouldEqual, scoring.BandGood)
		b, ok = scoring.ParseBand("")
		So(ok, ShouldBeFalse)
		So(b, ShouldEqual, scoring.BandAll)

		So(scoring.Round1(66.666), ShouldEqual, 66.7)
	})
}
