package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/trainerscope/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEntry(t *testing.T) {
	Convey("Given an Entry struct", t, func() {
		entry := types.Entry{
			Rank:      2,
			UserID:    "trainer-7",
			TotalXP:   1250,
			Level:     3,
			LevelName: "Competent",
		}

		Convey("When encoding it as JSON", func() {
			raw, err := json.Marshal(entry)
			So(err, ShouldBeNil)

			Convey("Then it uses snake_case field names", func() {
				var fields map[string]any
				So(json.Unmarshal(raw, &fields), ShouldBeNil)
				So(fields, ShouldContainKey, "user_id")
				So(fields, ShouldContainKey, "total_xp")
				So(fields, ShouldContainKey, "level_name")
				So(fields["rank"], ShouldEqual, 2)
			})
		})

		Convey("When creating an entry with zero values", func() {
			var zero types.Entry

			Convey("Then it should have default values", func() {
				So(zero.Rank, ShouldEqual, 0)
				So(zero.UserID, ShouldEqual, "")
				So(zero.TotalXP, ShouldEqual, 0)
			})
		})
	})
}

func TestTrainerSummary(t *testing.T) {
	Convey("Given a trainer summary", t, func() {
		s := types.TrainerSummary{TrainerID: "trainer-1"}
		s.Overall = 3.5
		s.Assessments = 2

		Convey("When encoding it as JSON", func() {
			raw, err := json.Marshal(s)
			So(err, ShouldBeNil)

			Convey("Then the embedded summary fields are flattened", func() {
				var fields map[string]any
				So(json.Unmarshal(raw, &fields), ShouldBeNil)
				So(fields["trainer_id"], ShouldEqual, "trainer-1")
				So(fields["overall_average"], ShouldEqual, 3.5)
				So(fields["assessments"], ShouldEqual, 2)
				So(fields, ShouldContainKey, "suggestions")
			})
		})
	})
}
