package access_test

import (
	"errors"
	"testing"

	"github.com/okian/kam/internal/domain/access"
	"github.com/okian/kam/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func fixture() *model.Snapshot {
	return &model.Snapshot{
		Records: []model.PerformanceRecord{
			{UserID: "U1", POC: "John Doe"},
			{UserID: "U2", POC: "Jane Roe"},
			{UserID: "U3", POC: "John Doe"},
		},
		Calls: []model.CallRecord{
			{UserID: "U1", Status: model.CallConnected},
			{UserID: "U2", Status: model.CallLater},
		},
		Queries: []model.UserQuery{
			{ID: "q1", UserID: "U2"},
			{ID: "q2", UserID: "U3"},
		},
		RetailerTags:  []model.RetailerTag{{UserID: "U1", Retailers: []string{"Ajio"}}},
		ComplaintTags: []string{"Other"},
		Accounts:      []model.BranchAccount{{ID: "a1"}},
		Users:         []model.User{{ID: "u1"}},
	}
}

func TestScope(t *testing.T) {
	Convey("Given a snapshot shared by two POCs", t, func() {
		s := fixture()

		Convey("When an admin looks", func() {
			got := access.Scope(access.Principal{Role: model.RoleAdmin}, s)

			Convey("Then everything is visible", func() {
				So(got == s, ShouldBeTrue)
			})
		})

		Convey("When an employee of John Doe looks", func() {
			got := access.Scope(access.Principal{Role: model.RoleEmployee, POC: "John Doe"}, s)

			Convey("Then only John Doe's users and their activity are visible", func() {
				So(got.Records, ShouldHaveLength, 2)
				So(got.Calls, ShouldHaveLength, 1)
				So(got.Calls[0].UserID, ShouldEqual, "U1")
				So(got.Queries, ShouldHaveLength, 1)
				So(got.Queries[0].ID, ShouldEqual, "q2")
				So(got.RetailerTags, ShouldHaveLength, 1)
				So(got.ComplaintTags, ShouldResemble, []string{"Other"})
				So(got.Accounts, ShouldBeEmpty)
				So(got.Users, ShouldBeEmpty)
			})
		})

		Convey("When an employee without a POC looks", func() {
			got := access.Scope(access.Principal{Role: model.RoleEmployee}, s)

			Convey("Then nothing is visible", func() {
				So(got.Records, ShouldBeEmpty)
				So(got.Calls, ShouldBeEmpty)
				So(got.Queries, ShouldBeEmpty)
			})
		})

		Convey("When a principal without a role looks", func() {
			got := access.Scope(access.Principal{POC: "John Doe"}, s)
			So(got.Records, ShouldBeEmpty)
		})

		Convey("A nil snapshot scopes to an empty one", func() {
			So(access.Scope(access.Principal{Role: model.RoleAdmin}, nil).Records, ShouldBeEmpty)
		})
	})
}

func TestChecks(t *testing.T) {
	Convey("Given principals of each kind", t, func() {
		s := fixture()
		admin := access.Principal{Role: model.RoleAdmin}
		john := access.Principal{Role: model.RoleEmployee, POC: "John Doe"}

		So(access.RequireAdmin(admin), ShouldBeNil)
		So(errors.Is(access.RequireAdmin(john), access.ErrForbidden), ShouldBeTrue)

		So(access.CanSeeUser(admin, s, "anything"), ShouldBeTrue)
		So(access.CanSeeUser(john, s, "U3"), ShouldBeTrue)
		So(access.CanSeeUser(john, s, "U2"), ShouldBeFalse)
		So(access.CanSeeUser(access.Principal{Role: model.RoleEmployee}, s, "U1"), ShouldBeFalse)

		So(access.VisibleUsers(admin, s.Records), ShouldBeNil)
		So(access.VisibleUsers(john, s.Records), ShouldHaveLength, 2)
	})
}
