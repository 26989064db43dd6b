package sheet_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/okian/kam/internal/adapters/sheet"
	. "github.com/smartystreets/goconvey/convey"
)

func workbook(rows [][]any) *bytes.Buffer {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck
	sheetName := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		So(err, ShouldBeNil)
		So(f.SetSheetRow(sheetName, cell, &row), ShouldBeNil)
	}
	buf, err := f.WriteToBuffer()
	So(err, ShouldBeNil)
	return buf
}

func TestReadXLSX(t *testing.T) {
	Convey("Given a workbook with a header and typed cells", t, func() {
		buf := workbook([][]any{
			{"UserID", "Date", "Name", "POC", "Potential", "Last 30 days", "ShortFall"},
			{"U1", "15/01/2024", "Alice", "John Doe", 1000, 400.5, 599.5},
		})

		Convey("When it is read", func() {
			rows, err := sheet.Read(buf, "Performance.XLSX")

			Convey("Then cells come back as raw strings", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 2)
				So(rows[0][5], ShouldEqual, "Last 30 days")
				So(rows[1][0], ShouldEqual, "U1")
				So(rows[1][4], ShouldEqual, "1000")
				So(rows[1][5], ShouldEqual, "400.5")
			})
		})
	})

	Convey("Given bytes that are not a workbook", t, func() {
		_, err := sheet.ReadXLSX(strings.NewReader("not a zip"))
		So(errors.Is(err, sheet.ErrUnreadable), ShouldBeTrue)
	})
}

func TestReadCSV(t *testing.T) {
	Convey("Given a CSV with a BOM and ragged rows", t, func() {
		in := "\uFEFFUserID,Date,Name\nU1,15/01/2024\n\"U2\",\"01/02/2024\",\"Smith, Jo\"\n"
		rows, err := sheet.Read(strings.NewReader(in), "upload.csv")

		Convey("Then records are returned as written", func() {
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 3)
			So(rows[0][0], ShouldEqual, "UserID")
			So(rows[1], ShouldHaveLength, 2)
			So(rows[2][2], ShouldEqual, "Smith, Jo")
		})
	})
}

func TestFormatOf(t *testing.T) {
	Convey("Only xlsx and csv uploads are accepted", t, func() {
		f, err := sheet.FormatOf("a.xlsx")
		So(err, ShouldBeNil)
		So(f, ShouldEqual, sheet.FormatXLSX)

		f, err = sheet.FormatOf("a.CSV")
		So(err, ShouldBeNil)
		So(f, ShouldEqual, sheet.FormatCSV)

		for _, name := range []string{"legacy.xls", "notes.txt", "noext"} {
			_, err := sheet.FormatOf(name)
			So(errors.Is(err, sheet.ErrUnsupportedFormat), ShouldBeTrue)
		}
	})
}
