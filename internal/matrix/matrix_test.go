package matrix

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/csvsub/runtime/internal/errhandling"
)

const bom = "\xef\xbb\xbf"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, "people.csv", "N,A,S\nJack,21,M\nAmy,30,F\n")

	m, err := Load(path, ReadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := &Matrix{Rows: []Row{{"N", "A", "S"}, {"Jack", "21", "M"}, {"Amy", "30", "F"}}}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	if m.HasHeader() {
		t.Error("header should not be captured without KeepHeader")
	}
}

func TestLoadKeepHeader(t *testing.T) {
	path := writeFile(t, "people.csv", bom+"N,A,S\nJack,21,M\n")

	m, err := Load(path, ReadOptions{KeepHeader: true})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := &Matrix{Header: Row{"N", "A", "S"}, Rows: []Row{{"Jack", "21", "M"}}}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPadsRaggedRows(t *testing.T) {
	path := writeFile(t, "ragged.csv", "a,b,c\nd\n\ne,f\n")

	m, err := Load(path, ReadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []Row{{"a", "b", "c"}, {"d", "", ""}, {"e", "f", ""}}
	if diff := cmp.Diff(want, m.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if m.Width() != 3 {
		t.Errorf("Width() = %d, want 3", m.Width())
	}
}

func TestLoadDelimiterAndQuotes(t *testing.T) {
	path := writeFile(t, "semi.csv", "name;note\n\"Doe; John\";\"said \"\"hi\"\"\"\n")

	m, err := Load(path, ReadOptions{Delimiter: ';'})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []Row{{"name", "note"}, {"Doe; John", `said "hi"`}}
	if diff := cmp.Diff(want, m.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEncoding(t *testing.T) {
	path := writeFile(t, "latin1.csv", "caf\xe9,cr\xe8me\n")

	m, err := Load(path, ReadOptions{Encoding: "windows-1252"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff([]Row{{"café", "crème"}}, m.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"), ReadOptions{})
	if !errors.Is(err, errhandling.ErrIO) {
		t.Errorf("missing file error = %v, want i/o error", err)
	}

	path := writeFile(t, "x.csv", "a\n")
	if _, err := Load(path, ReadOptions{Encoding: "no-such-charset"}); err == nil {
		t.Error("unknown encoding should fail")
	}
}

func TestLookupEncoding(t *testing.T) {
	for _, name := range []string{"", "utf-8-sig", "UTF-8", "utf8", "windows-1252", "shift_jis", "utf-16le"} {
		if _, err := LookupEncoding(name); err != nil {
			t.Errorf("LookupEncoding(%q) error = %v", name, err)
		}
	}
	if _, err := LookupEncoding("klingon"); err == nil {
		t.Error("LookupEncoding(klingon) should fail")
	}
}

func TestEncode(t *testing.T) {
	m := &Matrix{
		Header: Row{"N", "S"},
		Rows:   []Row{{"Jack", "M"}, {"Smith, Amy", "F"}},
	}

	tests := []struct {
		name string
		opts WriteOptions
		want string
	}{
		{"default writes bom", WriteOptions{}, bom + "N,S\nJack,M\n\"Smith, Amy\",F\n"},
		{"plain utf-8", WriteOptions{Encoding: "utf-8"}, "N,S\nJack,M\n\"Smith, Amy\",F\n"},
		{"tab delimiter", WriteOptions{Encoding: "utf-8", Delimiter: '\t'}, "N\tS\nJack\tM\nSmith, Amy\tF\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, m, tt.opts); err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteHeaderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, "in.csv", "N,A,S\nJack,21,M\nAmy,30,F\n")

	m, err := Load(src, ReadOptions{KeepHeader: true})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	dest := filepath.Join(dir, "out.csv")
	if err := Write(dest, m, WriteOptions{}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	back, err := Load(dest, ReadOptions{KeepHeader: true})
	if err != nil {
		t.Fatalf("reload error = %v", err)
	}
	if diff := cmp.Diff(m, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temporary file %s left behind", e.Name())
		}
	}
}

func TestWriteUnwritableDestination(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "no", "such", "dir", "out.csv")

	err := Write(dest, &Matrix{Rows: []Row{{"a"}}}, WriteOptions{})
	if !errors.Is(err, errhandling.ErrIO) {
		t.Errorf("Write() error = %v, want i/o error", err)
	}
}

func TestLoadWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"N", "A", "S"},
		{"Jack", 21, "M"},
		{"Amy"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}
	if _, err := f.NewSheet("Other"); err != nil {
		t.Fatalf("NewSheet() error = %v", err)
	}
	if err := f.SetCellValue("Other", "A1", "only"); err != nil {
		t.Fatalf("SetCellValue() error = %v", err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs() error = %v", err)
	}
	_ = f.Close()

	m, err := Load(path, ReadOptions{KeepHeader: true})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := &Matrix{
		Header: Row{"N", "A", "S"},
		Rows:   []Row{{"Jack", "21", "M"}, {"Amy", "", ""}},
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	other, err := Load(path, ReadOptions{Sheet: "Other"})
	if err != nil {
		t.Fatalf("Load(Other) error = %v", err)
	}
	if diff := cmp.Diff([]Row{{"only"}}, other.Rows); diff != "" {
		t.Errorf("sheet Other mismatch (-want +got):\n%s", diff)
	}

	if _, err := Load(path, ReadOptions{Sheet: "Missing"}); !errors.Is(err, errhandling.ErrIO) {
		t.Errorf("missing sheet error = %v, want i/o error", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	m := &Matrix{Header: Row{"h"}, Rows: []Row{{"a", "b"}}}
	c := m.Clone()
	c.Rows[0][0] = "changed"
	c.Header[0] = "changed"

	if m.Rows[0][0] != "a" || m.Header[0] != "h" {
		t.Error("Clone() should not share cells with the original")
	}
}

func TestCheckColumn(t *testing.T) {
	m := FromRecords([][]string{{"a", "b"}}, false)

	if err := m.CheckColumn(1); err != nil {
		t.Errorf("CheckColumn(1) error = %v", err)
	}
	for _, col := range []int{-1, 2, 26} {
		if err := m.CheckColumn(col); !errors.Is(err, errhandling.ErrColumnOutOfRange) {
			t.Errorf("CheckColumn(%d) error = %v, want out of range", col, err)
		}
	}
}
