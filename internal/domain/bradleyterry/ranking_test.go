package bradleyterry_test

import (
	"testing"

	bt "github.com/okian/duel/internal/domain/bradleyterry"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRank(t *testing.T) {
	Convey("Given a strength map with ties", t, func() {
		s := bt.StrengthMap{"Stanmore": 0.5, "Erskineville": 2, "Camperdown": 0.5, "Redfern": 1}

		Convey("When ranking", func() {
			got := bt.Rank(s)

			Convey("Then entries are ordered by strength then name", func() {
				So(got, ShouldResemble, []bt.Ranked{
					{Rank: 1, Competitor: "Erskineville", Strength: 2},
					{Rank: 2, Competitor: "Redfern", Strength: 1},
					{Rank: 3, Competitor: "Camperdown", Strength: 0.5},
					{Rank: 4, Competitor: "Stanmore", Strength: 0.5},
				})
			})
		})
	})

	Convey("Given an empty strength map", t, func() {
		Convey("Then the ranking is empty", func() {
			So(bt.Rank(bt.StrengthMap{}), ShouldBeEmpty)
			So(bt.Rank(nil), ShouldBeEmpty)
		})
	})
}
