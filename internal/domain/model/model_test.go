package model_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/kam/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEnums(t *testing.T) {
	Convey("Given the closed value sets", t, func() {
		So(model.CallConnected.Valid(), ShouldBeTrue)
		So(model.CallStatus("voicemail").Valid(), ShouldBeFalse)
		So(model.QueryInProgress.Valid(), ShouldBeTrue)
		So(model.QueryStatus("closed").Valid(), ShouldBeFalse)
		So(model.RoleAdmin.Valid(), ShouldBeTrue)
		So(model.Role("").Valid(), ShouldBeFalse)
		So(model.IsRetailer("Dot&Key"), ShouldBeTrue)
		So(model.IsRetailer("dot&key"), ShouldBeFalse)
		So(len(model.DefaultComplaintTags), ShouldEqual, 15)
		So(len(model.Retailers), ShouldEqual, 14)
	})
}

func TestPerformanceRecordJSON(t *testing.T) {
	Convey("A record serializes with spreadsheet header names", t, func() {
		b, err := json.Marshal(model.PerformanceRecord{UserID: "U1", Last30Days: 5})
		So(err, ShouldBeNil)
		So(string(b), ShouldContainSubstring, `"Last 30 days":5`)
		So(string(b), ShouldContainSubstring, `"UserID":"U1"`)
	})
}

func TestPublicCopies(t *testing.T) {
	Convey("Password hashes never leave through Public", t, func() {
		acc := model.BranchAccount{FirstName: "Asha", LastName: "Rao", PasswordHash: "h"}
		So(acc.Public().PasswordHash, ShouldBeEmpty)
		So(acc.PasswordHash, ShouldEqual, "h")
		So(acc.FullName(), ShouldEqual, "Asha Rao")

		u := model.User{Username: "asha", PasswordHash: "h"}
		So(u.Public().PasswordHash, ShouldBeEmpty)
	})
}

func TestSnapshotParts(t *testing.T) {
	Convey("Given a snapshot", t, func() {
		s := &model.Snapshot{
			Records:       []model.PerformanceRecord{{UserID: "U1"}, {UserID: "U2"}},
			ComplaintTags: []string{"Other"},
		}

		Convey("Then Len counts each collection", func() {
			So(s.Len(model.CollectionRecords), ShouldEqual, 2)
			So(s.Len(model.CollectionComplaintTags), ShouldEqual, 1)
			So(s.Len(model.CollectionUsers), ShouldEqual, 0)
			So(s.Len("unknown"), ShouldEqual, 0)
			So((*model.Snapshot)(nil).Len(model.CollectionRecords), ShouldEqual, 0)
		})

		Convey("Then PartPtr decodes into the matching field", func() {
			err := json.Unmarshal([]byte(`[{"userId":"U1","status":"call later"}]`), s.PartPtr(model.CollectionCalls))
			So(err, ShouldBeNil)
			So(s.Calls, ShouldHaveLength, 1)
			So(s.Calls[0].Status, ShouldEqual, model.CallLater)
			So(s.PartPtr("unknown"), ShouldBeNil)
		})

		Convey("Then every collection key is valid", func() {
			for _, c := range model.Collections {
				So(c.Valid(), ShouldBeTrue)
				So(s.PartPtr(c), ShouldNotBeNil)
			}
			So(model.Collection("kam-other").Valid(), ShouldBeFalse)
		})
	})
}
