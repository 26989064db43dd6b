package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/kam/internal/adapters/auth"
	"github.com/okian/kam/internal/adapters/repository"
	"github.com/okian/kam/internal/adapters/storage"
	service "github.com/okian/kam/internal/app"
	"github.com/okian/kam/internal/domain/access"
	"github.com/okian/kam/internal/domain/analytics"
	"github.com/okian/kam/internal/domain/ingest"
	"github.com/okian/kam/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var header = []string{"UserID", "Date", "Name", "POC", "Potential", "Last 30 days", "ShortFall"}

func sheet() [][]string {
	return [][]string{
		header,
		{"U1", "15/01/2024", "Alice", "Asha Rao", "1000", "400", "600"},
		{"U2", "15/01/2024", "Bob", "Asha Rao", "1000", "900", "100"},
		{"U3", "15/01/2024", "Cara", "Vik Das", "500", "100", "400"},
		{"", "15/01/2024", "Ghost", "Vik Das", "10", "1", "9"},
	}
}

type fixture struct {
	svc     *service.Service
	backend *storage.Memory
	clock   *clock
	admin   access.Principal
}

func newFixture(ctx context.Context) *fixture {
	tokens, err := auth.NewTokens("0123456789abcdef0123", time.Hour)
	So(err, ShouldBeNil)

	f := &fixture{
		backend: storage.NewMemory(),
		clock:   &clock{now: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)},
	}
	f.svc = service.New(
		service.WithBackend(f.backend),
		service.WithWorkerCount(1),
		service.WithQueueSize(16),
		service.WithPreviewTTL(10*time.Minute),
		service.WithTokenIssuer(tokens),
		service.WithClock(f.clock.Now),
		service.WithAdmin(service.AdminBootstrap{
			Email:    "admin@kam.local",
			Username: "admin",
			Password: "admin-pass",
			Name:     "Administrator",
		}),
	)
	So(f.svc.Start(ctx), ShouldBeNil)

	sess, err := f.svc.Login(ctx, "admin", "admin-pass")
	So(err, ShouldBeNil)
	f.admin = service.PrincipalOf(sess.User)
	return f
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		f := newFixture(ctx)
		defer f.svc.Stop(ctx) //nolint:errcheck

		Convey("Then the bootstrap admin can log in by email too", func() {
			sess, err := f.svc.Login(ctx, "ADMIN@kam.local", "admin-pass")
			So(err, ShouldBeNil)
			So(sess.Token, ShouldNotBeEmpty)
			So(sess.User.Role, ShouldEqual, model.RoleAdmin)
			So(sess.User.PasswordHash, ShouldBeEmpty)
		})

		Convey("Then bad credentials fail the same way for unknown users", func() {
			_, err := f.svc.Login(ctx, "admin", "wrong")
			So(errors.Is(err, auth.ErrInvalidCredentials), ShouldBeTrue)
			_, err = f.svc.Login(ctx, "nobody", "admin-pass")
			So(errors.Is(err, auth.ErrInvalidCredentials), ShouldBeTrue)
		})

		Convey("Then Start is idempotent and stats report it", func() {
			So(f.svc.Start(ctx), ShouldBeNil)
			stats := f.svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["pendingPreviews"], ShouldEqual, 0)
		})

		Convey("Then the default complaint tags are loaded", func() {
			So(f.svc.ComplaintTags(), ShouldResemble, model.DefaultComplaintTags)
		})
	})
}

func TestImportWorkflow(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		f := newFixture(ctx)
		defer f.svc.Stop(ctx) //nolint:errcheck

		Convey("When an admin previews a valid sheet", func() {
			pv, err := f.svc.PreviewImport(ctx, f.admin, sheet())
			So(err, ShouldBeNil)

			Convey("Then rows without identity are dropped and nothing is replaced yet", func() {
				So(pv.ID, ShouldNotBeEmpty)
				So(pv.Records, ShouldHaveLength, 3)
				So(pv.DataRows, ShouldEqual, 4)
				So(pv.Dropped, ShouldEqual, 1)
				So(pv.Records[0].ProRatedAch, ShouldEqual, 40)
				So(f.svc.Store().Records(), ShouldBeEmpty)
			})

			Convey("And confirms it", func() {
				res, err := f.svc.ConfirmImport(ctx, f.admin, pv.ID)
				So(err, ShouldBeNil)
				So(res.Records, ShouldEqual, 3)

				Convey("Then the records are replaced", func() {
					So(f.svc.Store().Records(), ShouldHaveLength, 3)
				})

				Convey("Then a second confirm is a duplicate", func() {
					_, err := f.svc.ConfirmImport(ctx, f.admin, pv.ID)
					So(errors.Is(err, service.ErrPreviewConfirmed), ShouldBeTrue)
				})

				Convey("Then the records reach the backend once the service stops", func() {
					So(f.svc.Stop(ctx), ShouldBeNil)
					So(f.backend.Saved(model.CollectionRecords), ShouldBeTrue)
					snap, err := f.backend.Load(ctx)
					So(err, ShouldBeNil)
					So(snap.Records, ShouldHaveLength, 3)
				})
			})

			Convey("And waits past the preview TTL", func() {
				f.clock.Advance(11 * time.Minute)
				_, err := f.svc.ConfirmImport(ctx, f.admin, pv.ID)

				Convey("Then the preview is gone", func() {
					So(errors.Is(err, service.ErrPreviewNotFound), ShouldBeTrue)
					So(f.svc.Store().Records(), ShouldBeEmpty)
				})
			})
		})

		Convey("When the sheet is invalid", func() {
			rows := sheet()
			rows[2][1] = "2024-01-15"
			_, err := f.svc.PreviewImport(ctx, f.admin, rows)

			Convey("Then the validation error names the row", func() {
				var verr *ingest.ValidationError
				So(errors.As(err, &verr), ShouldBeTrue)
				So(verr.Kind, ShouldEqual, ingest.ErrInvalidDate)
				So(verr.Row, ShouldEqual, 3)
			})
		})

		Convey("When an unknown preview is confirmed", func() {
			_, err := f.svc.ConfirmImport(ctx, f.admin, "missing")
			So(errors.Is(err, service.ErrPreviewNotFound), ShouldBeTrue)
		})

		Convey("When an employee tries to import", func() {
			_, err := f.svc.DirectImport(ctx, access.Principal{UserID: "e", Role: model.RoleEmployee, POC: "Asha Rao"}, sheet())
			So(errors.Is(err, access.ErrForbidden), ShouldBeTrue)
		})

		Convey("When importing directly", func() {
			res, err := f.svc.DirectImport(ctx, f.admin, sheet())
			So(err, ShouldBeNil)
			So(res.Records, ShouldEqual, 3)
			So(res.Dropped, ShouldEqual, 1)
		})
	})
}

func TestAccountsAndScope(t *testing.T) {
	Convey("Given imported records and an employee account", t, func() {
		ctx := context.Background()
		f := newFixture(ctx)
		defer f.svc.Stop(ctx) //nolint:errcheck

		_, err := f.svc.DirectImport(ctx, f.admin, sheet())
		So(err, ShouldBeNil)

		acc, err := f.svc.CreateAccount(ctx, f.admin, service.NewAccount{
			FirstName: "Asha",
			LastName:  "Rao",
			Email:     "asha@kam.local",
			Role:      model.RoleEmployee,
			Username:  "asha",
			Password:  "asha-pass",
		})
		So(err, ShouldBeNil)
		So(acc.PasswordHash, ShouldBeEmpty)

		sess, err := f.svc.Login(ctx, "asha", "asha-pass")
		So(err, ShouldBeNil)
		asha := service.PrincipalOf(sess.User)

		Convey("Then the employee is bound to the account's full name", func() {
			So(asha.POC, ShouldEqual, "Asha Rao")
			So(asha.Role, ShouldEqual, model.RoleEmployee)
		})

		Convey("Then the token verifies to the stored user", func() {
			p, err := f.svc.Verify(sess.Token)
			So(err, ShouldBeNil)
			So(p, ShouldResemble, asha)

			_, err = f.svc.Verify("not-a-token")
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})

		Convey("Then the employee only sees records of their POC", func() {
			page, err := f.svc.Records(asha, analytics.TableQuery{})
			So(err, ShouldBeNil)
			So(page.Total, ShouldEqual, 2)

			_, err = f.svc.Profile(asha, "U3")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then the POC list matches the branch account for admins", func() {
			pocs := f.svc.POCs(f.admin)
			So(pocs, ShouldHaveLength, 2)
			So(pocs[0].POC, ShouldEqual, "Asha Rao")
			So(pocs[0].Account, ShouldNotBeNil)
			So(pocs[1].Account, ShouldBeNil)
		})

		Convey("Then calls are limited to visible users", func() {
			_, err := f.svc.SaveCall(ctx, asha, model.CallRecord{UserID: "U1", Status: model.CallConnected})
			So(err, ShouldBeNil)
			_, err = f.svc.SaveCall(ctx, asha, model.CallRecord{UserID: "U3", Status: model.CallConnected})
			So(errors.Is(err, access.ErrForbidden), ShouldBeTrue)
			_, err = f.svc.SaveCall(ctx, asha, model.CallRecord{UserID: "U1", Status: model.CallLater, ComplaintTag: "Nope"})
			So(errors.Is(err, repository.ErrInvalid), ShouldBeTrue)

			view := f.svc.Dashboard(asha)
			So(view.Stats.AssignedUsers, ShouldEqual, 2)
			So(view.Stats.CallsCompleted, ShouldEqual, 1)
			So(view.Stats.SuccessRate, ShouldEqual, 100)
		})

		Convey("Then queries get the user's name and can change status", func() {
			q, err := f.svc.SaveQuery(ctx, asha, model.UserQuery{UserID: "U2", ComplaintTag: "Other", Comment: "late"})
			So(err, ShouldBeNil)
			So(q.UserName, ShouldEqual, "Bob")
			So(q.Status, ShouldEqual, model.QueryOpen)

			q, err = f.svc.SetQueryStatus(ctx, asha, q.ID, model.QueryResolved)
			So(err, ShouldBeNil)
			So(q.Status, ShouldEqual, model.QueryResolved)

			view := f.svc.Complaints(f.admin, nil, "")
			So(view.Tags, ShouldResemble, []analytics.TagCount{{Tag: "Other", Count: 1}})
			So(view.Affected, ShouldHaveLength, 1)
		})

		Convey("Given a query the admin logged for another POC's user", func() {
			other, err := f.svc.SaveQuery(ctx, f.admin, model.UserQuery{UserID: "U3", ComplaintTag: "Other", Comment: "refund"})
			So(err, ShouldBeNil)

			Convey("Then the employee cannot update it or move it to their own user", func() {
				_, err := f.svc.SaveQuery(ctx, asha, model.UserQuery{ID: other.ID, UserID: "U1", Comment: "hijacked"})
				So(errors.Is(err, access.ErrForbidden), ShouldBeTrue)
				_, err = f.svc.SaveQuery(ctx, asha, model.UserQuery{ID: other.ID, Comment: "hijacked"})
				So(errors.Is(err, access.ErrForbidden), ShouldBeTrue)

				stored := f.svc.Queries(f.admin)
				So(stored, ShouldHaveLength, 1)
				So(stored[0].UserID, ShouldEqual, "U3")
				So(stored[0].Comment, ShouldEqual, "refund")
			})

			Convey("Then even an admin cannot move it to a different user", func() {
				_, err := f.svc.SaveQuery(ctx, f.admin, model.UserQuery{ID: other.ID, UserID: "U1"})
				So(errors.Is(err, repository.ErrInvalid), ShouldBeTrue)
			})

			Convey("Then an unknown id is not found", func() {
				_, err := f.svc.SaveQuery(ctx, f.admin, model.UserQuery{ID: "missing", UserID: "U3"})
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("Given an in-progress query on a visible user", func() {
			q, err := f.svc.SaveQuery(ctx, asha, model.UserQuery{UserID: "U1", ComplaintTag: "Other", Comment: "late"})
			So(err, ShouldBeNil)
			q, err = f.svc.SetQueryStatus(ctx, asha, q.ID, model.QueryInProgress)
			So(err, ShouldBeNil)
			created := q.Timestamp

			Convey("When an update sends only a new comment", func() {
				f.clock.Advance(time.Hour)
				updated, err := f.svc.SaveQuery(ctx, f.admin, model.UserQuery{ID: q.ID, UserID: "U1", Comment: "chased courier"})
				So(err, ShouldBeNil)

				Convey("Then the other fields keep their stored values", func() {
					So(updated.Comment, ShouldEqual, "chased courier")
					So(updated.Status, ShouldEqual, model.QueryInProgress)
					So(updated.ComplaintTag, ShouldEqual, "Other")
					So(updated.Timestamp.Equal(created), ShouldBeTrue)
					So(updated.CreatedBy, ShouldEqual, asha.UserID)
					So(updated.UserName, ShouldEqual, "Alice")
				})
			})
		})

		Convey("Then retailer tags feed retailer analytics", func() {
			_, err := f.svc.SaveRetailerTag(ctx, asha, model.RetailerTag{UserID: "U1", Retailers: []string{"Myntra"}})
			So(err, ShouldBeNil)
			view := f.svc.RetailerStats(f.admin)
			So(view.Counts, ShouldResemble, []analytics.RetailerCount{{Retailer: "Myntra", Count: 1}})
		})

		Convey("Then only admins manage accounts and complaint tags", func() {
			_, err := f.svc.Accounts(asha)
			So(errors.Is(err, access.ErrForbidden), ShouldBeTrue)
			So(errors.Is(f.svc.AddComplaintTag(ctx, asha, "New"), access.ErrForbidden), ShouldBeTrue)
			So(f.svc.AddComplaintTag(ctx, f.admin, "New"), ShouldBeNil)
			So(f.svc.ComplaintTags(), ShouldContain, "New")
		})

		Convey("When the account is deleted", func() {
			So(f.svc.DeleteAccount(ctx, f.admin, acc.ID), ShouldBeNil)

			Convey("Then the employee's existing token stops verifying", func() {
				_, err := f.svc.Verify(sess.Token)
				So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
			})

			Convey("Then its login user is gone too", func() {
				_, err := f.svc.Login(ctx, "asha", "asha-pass")
				So(errors.Is(err, auth.ErrInvalidCredentials), ShouldBeTrue)
				accounts, err := f.svc.Accounts(f.admin)
				So(err, ShouldBeNil)
				So(accounts, ShouldBeEmpty)
			})
		})

		Convey("When a second account reuses the username", func() {
			_, err := f.svc.CreateAccount(ctx, f.admin, service.NewAccount{
				FirstName: "Other", LastName: "Person", Email: "o@kam.local",
				Role: model.RoleEmployee, Username: "ASHA", Password: "x",
			})
			So(errors.Is(err, repository.ErrDuplicate), ShouldBeTrue)
		})
	})
}

func TestChangeFeed(t *testing.T) {
	Convey("Given a subscriber to the change feed", t, func() {
		ctx := context.Background()
		f := newFixture(ctx)
		defer f.svc.Stop(ctx) //nolint:errcheck

		changes, cancel := f.svc.Subscribe(4)
		defer cancel()

		Convey("When a complaint tag is added", func() {
			So(f.svc.AddComplaintTag(ctx, f.admin, "Courier"), ShouldBeNil)

			Convey("Then the change is delivered", func() {
				select {
				case c := <-changes:
					So(c.Collection, ShouldEqual, model.CollectionComplaintTags)
					So(c.Action, ShouldEqual, model.ActionCreate)
				case <-time.After(time.Second):
					So("no change delivered", ShouldBeEmpty)
				}
			})
		})
	})
}
