package sampledata_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/kam/internal/adapters/auth"
	"github.com/okian/kam/internal/adapters/http/api"
	"github.com/okian/kam/internal/adapters/sheet"
	"github.com/okian/kam/internal/adapters/storage"
	service "github.com/okian/kam/internal/app"
	"github.com/okian/kam/internal/domain/ingest"
	"github.com/okian/kam/internal/sampledata"
	. "github.com/smartystreets/goconvey/convey"
)

var day = time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC)

func TestGenerate(t *testing.T) {
	Convey("Given a seed", t, func() {
		rows, err := sampledata.Generate(40, 3, 42, day)
		So(err, ShouldBeNil)

		Convey("Then the sheet has a header and the requested rows", func() {
			So(rows, ShouldHaveLength, 41)
			So(rows[0], ShouldResemble, sampledata.Header)
			So(rows[1][1], ShouldEqual, "07/03/2024")
		})

		Convey("Then rows are spread over the POCs", func() {
			pocs := map[any]int{}
			for _, r := range rows[1:] {
				pocs[r[3]]++
			}
			So(pocs, ShouldHaveLength, 3)
		})

		Convey("Then the same seed gives the same numbers", func() {
			again, err := sampledata.Generate(40, 3, 42, day)
			So(err, ShouldBeNil)
			for i := 1; i < len(rows); i++ {
				So(again[i][2:], ShouldResemble, rows[i][2:])
			}
			So(sampledata.Underperforming(again), ShouldEqual, sampledata.Underperforming(rows))
		})
	})

	Convey("Given bad sizes", t, func() {
		_, err := sampledata.Generate(0, 3, 1, day)
		So(err, ShouldNotBeNil)
		_, err = sampledata.Generate(10, 0, 1, day)
		So(err, ShouldNotBeNil)
	})
}

func TestWorkbookImports(t *testing.T) {
	Convey("Given a generated workbook", t, func() {
		rows, err := sampledata.Generate(25, 2, 7, day)
		So(err, ShouldBeNil)
		book, err := sampledata.Workbook(rows)
		So(err, ShouldBeNil)

		Convey("When it is read and ingested", func() {
			grid, err := sheet.Read(bytes.NewReader(book), "sample.xlsx")
			So(err, ShouldBeNil)
			res, err := ingest.Process(grid)

			Convey("Then every row becomes a record", func() {
				So(err, ShouldBeNil)
				So(res.Records, ShouldHaveLength, 25)
				So(res.Records[0].UserID, ShouldEqual, rows[1][0])
				So(res.Records[0].Potential, ShouldEqual, rows[1][4])
			})
		})
	})

	Convey("Given an output path in a new directory", t, func() {
		path := filepath.Join(t.TempDir(), "out", sampledata.DefaultOutput(day))
		So(sampledata.SaveFile(path, []byte("xlsx")), ShouldBeNil)

		data, err := os.ReadFile(path)
		So(err, ShouldBeNil)
		So(string(data), ShouldEqual, "xlsx")
	})
}

func newServer() (*httptest.Server, *service.Service) {
	tokens, err := auth.NewTokens("sample-data-test-secret", time.Hour)
	So(err, ShouldBeNil)
	svc := service.New(
		service.WithBackend(storage.NewMemory()),
		service.WithWorkerCount(1),
		service.WithTokenIssuer(tokens),
		service.WithAdmin(service.AdminBootstrap{Email: "admin@kam.local", Username: "admin", Password: "admin-pass", Name: "Admin"}),
	)
	So(svc.Start(context.Background()), ShouldBeNil)

	srv := api.NewServer(svc, svc, api.WithImportLimit(100, 100))
	mux := http.NewServeMux()
	srv.Register(context.Background(), mux)
	return httptest.NewServer(srv.Handler(mux)), svc
}

func TestRun(t *testing.T) {
	Convey("Given a running server", t, func() {
		ts, svc := newServer()
		defer ts.Close()
		defer svc.Stop(context.Background()) //nolint:errcheck

		cfg := &sampledata.Config{
			BaseURL:  ts.URL,
			Login:    "admin",
			Password: "admin-pass",
			Rows:     60,
			POCs:     4,
			Seed:     3,
			Workers:  4,
			Timeout:  5 * time.Second,
		}

		Convey("When the sample run imports a sheet", func() {
			stats, err := sampledata.Run(context.Background(), cfg)

			Convey("Then the server agrees with the sheet", func() {
				So(err, ShouldBeNil)
				So(stats.RecordsImported, ShouldEqual, 60)
				So(stats.ProfilesChecked, ShouldEqual, 60)
				So(stats.ProfilesMismatch, ShouldEqual, 0)
				So(svc.Store().Records(), ShouldHaveLength, 60)
			})
		})

		Convey("When the password is wrong", func() {
			cfg.Password = "nope"
			_, err := sampledata.Run(context.Background(), cfg)

			Convey("Then the run stops at login", func() {
				var apiErr *sampledata.APIError
				So(errors.As(err, &apiErr), ShouldBeTrue)
				So(apiErr.Status, ShouldEqual, http.StatusUnauthorized)
			})
		})
	})

	Convey("Given no server", t, func() {
		_, err := sampledata.Run(context.Background(), &sampledata.Config{
			BaseURL: "http://127.0.0.1:1", Rows: 1, POCs: 1, Workers: 1, Timeout: time.Second,
		})
		So(err, ShouldNotBeNil)
	})
}
