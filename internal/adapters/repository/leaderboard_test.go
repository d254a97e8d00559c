package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLeaderboard(t *testing.T) {
	Convey("Given a leaderboard", t, func() {
		ctx := context.Background()
		board := NewLeaderboard(ctx, WithMetricsUpdateInterval(10*time.Millisecond))
		Reset(func() { _ = board.Close() })

		Convey("When it is empty", func() {
			top, err := board.TopN(ctx, 5)

			Convey("Then queries return nothing", func() {
				So(err, ShouldBeNil)
				So(top, ShouldBeEmpty)
				So(board.Count(ctx), ShouldEqual, 0)
				_, err := board.Rank(ctx, "ghost")
				So(err, ShouldEqual, ErrNotFound)
			})
		})

		Convey("When the limit is not positive", func() {
			_, err := board.TopN(ctx, 0)
			So(err, ShouldEqual, ErrInvalidLimit)
		})

		Convey("When users have distinct and tied totals", func() {
			So(board.UpsertXP(ctx, "carol", 300), ShouldBeNil)
			So(board.UpsertXP(ctx, "alice", 500), ShouldBeNil)
			So(board.UpsertXP(ctx, "bob", 500), ShouldBeNil)
			So(board.UpsertXP(ctx, "dave", 100), ShouldBeNil)

			Convey("Then TopN orders by XP then id with dense ranks", func() {
				top, err := board.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 4)
				So(top[0], ShouldResemble, Entry{Rank: 1, UserID: "alice", TotalXP: 500})
				So(top[1], ShouldResemble, Entry{Rank: 1, UserID: "bob", TotalXP: 500})
				So(top[2], ShouldResemble, Entry{Rank: 2, UserID: "carol", TotalXP: 300})
				So(top[3], ShouldResemble, Entry{Rank: 3, UserID: "dave", TotalXP: 100})
			})

			Convey("Then Rank agrees with TopN", func() {
				top, _ := board.TopN(ctx, 10)
				for _, e := range top {
					got, err := board.Rank(ctx, e.UserID)
					So(err, ShouldBeNil)
					So(got, ShouldResemble, e)
				}
			})

			Convey("Then TopN respects the limit", func() {
				top, err := board.TopN(ctx, 2)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 2)
			})

			Convey("And a user overtakes the leaders", func() {
				So(board.UpsertXP(ctx, "dave", 900), ShouldBeNil)

				Convey("Then ranks shift and the old total is forgotten", func() {
					e, err := board.Rank(ctx, "dave")
					So(err, ShouldBeNil)
					So(e.Rank, ShouldEqual, 1)
					e, _ = board.Rank(ctx, "carol")
					So(e.Rank, ShouldEqual, 3)
					So(board.Count(ctx), ShouldEqual, 4)
					So(len(board.tally), ShouldEqual, 3)
				})
			})

			Convey("And a tied user moves away", func() {
				So(board.UpsertXP(ctx, "bob", 600), ShouldBeNil)

				Convey("Then the shared total remains for the other user", func() {
					e, _ := board.Rank(ctx, "alice")
					So(e.Rank, ShouldEqual, 2)
					So(board.tally[500], ShouldEqual, 1)
				})
			})
		})

		Convey("When a stale total arrives after a newer one", func() {
			So(board.UpsertXP(ctx, "erin", 100), ShouldBeNil)
			So(board.UpsertXP(ctx, "erin", 50), ShouldBeNil)

			Convey("Then the higher total is kept", func() {
				e, err := board.Rank(ctx, "erin")
				So(err, ShouldBeNil)
				So(e.TotalXP, ShouldEqual, 100)
				So(len(board.tally), ShouldEqual, 1)
			})
		})

		Convey("When many users are written concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_ = board.UpsertXP(ctx, fmt.Sprintf("user-%02d", i), int64(i%10)*100)
				}(i)
			}
			wg.Wait()

			Convey("Then every user is ranked and the tree stays sized", func() {
				So(board.Count(ctx), ShouldEqual, 50)
				So(nsize(board.root), ShouldEqual, 50)
				So(nsize(board.distinct), ShouldEqual, 10)
				e, err := board.Rank(ctx, "user-00")
				So(err, ShouldBeNil)
				So(e.Rank, ShouldEqual, 10)
			})
		})

		Convey("When Close is called twice", func() {
			So(board.Close(), ShouldBeNil)
			So(board.Close(), ShouldBeNil)
		})
	})
}
