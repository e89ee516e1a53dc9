package source

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/klauspost/compress/gzip"

	"github.com/JonMunkholm/datacleaner/internal/config"
	"github.com/JonMunkholm/datacleaner/internal/dataset"
)

const studentsCSV = "age,gender\n20,Male\n,female\n"

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestReadCSV(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"plain", []byte(studentsCSV)},
		{"gzip", gzipped(t, studentsCSV)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := ReadCSV(bytes.NewReader(tt.input), "students")
			if err != nil {
				t.Fatalf("ReadCSV: %v", err)
			}
			if ds.Rows() != 2 || ds.NumColumns() != 2 {
				t.Fatalf("shape = %v", ds.Shape())
			}
			age, _ := ds.Column("age")
			if age.Type != dataset.TypeInteger || !age.Values[1].IsNull() {
				t.Errorf("age = %+v", age)
			}
		})
	}
}

func TestReadCSVCorruptGzip(t *testing.T) {
	data := gzipped(t, studentsCSV)
	data = data[:len(data)-6]
	if _, err := ReadCSV(bytes.NewReader(data), "x"); err == nil || !strings.Contains(err.Error(), "gzip") {
		t.Errorf("err = %v, want gzip error", err)
	}
}

func TestFileRoundTrip(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(studentsCSV), "students")
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"out.csv", "out.csv.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := WriteFile(path, ds); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			raw, _ := os.ReadFile(path)
			if isGz := bytes.HasPrefix(raw, gzipMagic); isGz != strings.HasSuffix(name, ".gz") {
				t.Errorf("compressed = %v for %s", isGz, name)
			}

			back, err := ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if back.Name != "out" || back.Rows() != 2 {
				t.Errorf("read back %q with %d rows", back.Name, back.Rows())
			}
		})
	}
}

func TestReadFileRejectsExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xlsx")
	if err := os.WriteFile(path, []byte(studentsCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFile(path); !errors.Is(err, ErrNotCSV) {
		t.Errorf("err = %v, want ErrNotCSV", err)
	}
}

func TestDatasetName(t *testing.T) {
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"/tmp/students.csv", "students", true},
		{"Students.CSV.GZ", "Students", true},
		{"a.b.csv", "a.b", true},
		{"notes.txt", "notes.txt", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := DatasetName(tt.path)
			if got != tt.want || ok != tt.ok {
				t.Errorf("DatasetName(%q) = %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestValueFromAny(t *testing.T) {
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	id := [16]byte{0x12, 0x34}
	tests := []struct {
		name string
		in   any
		want dataset.Value
	}{
		{"nil", nil, dataset.Null()},
		{"string", "x", dataset.Text("x")},
		{"bytes", []byte("y"), dataset.Text("y")},
		{"int32", int32(7), dataset.Int(7)},
		{"uint8", uint8(3), dataset.Int(3)},
		{"float32", float32(1.5), dataset.Float(1.5)},
		{"bool", true, dataset.Bool(true)},
		{"time", ts, dataset.Time(ts)},
		{"numeric int", pgtype.Numeric{Int: big.NewInt(20), Exp: 0, Valid: true}, dataset.Int(20)},
		{"numeric frac", pgtype.Numeric{Int: big.NewInt(1234), Exp: -2, Valid: true}, dataset.Float(12.34)},
		{"numeric null", pgtype.Numeric{}, dataset.Null()},
		{"numeric nan", pgtype.Numeric{NaN: true, Valid: true}, dataset.Null()},
		{"uuid", id, dataset.Text("12340000-0000-0000-0000-000000000000")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := valueFromAny(tt.in)
			if got.Kind() != tt.want.Kind() || !got.Equal(tt.want) {
				t.Errorf("valueFromAny(%v) = %v (%v), want %v (%v)", tt.in, got, got.Kind(), tt.want, tt.want.Kind())
			}
		})
	}
}

func TestCreateTableSQL(t *testing.T) {
	ds, err := dataset.FromRows("t", []string{"age", "name", "score"}, [][]dataset.Value{
		{dataset.Int(1), dataset.Text("a"), dataset.Float(0.5)},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := createTableSQL(pgx.Identifier{"public", "clean"}, ds)
	want := `CREATE TABLE IF NOT EXISTS "public"."clean" ("age" BIGINT, "name" TEXT, "score" DOUBLE PRECISION)`
	if got != want {
		t.Errorf("createTableSQL =\n%s\nwant\n%s", got, want)
	}
}

func TestPostgresDisabled(t *testing.T) {
	p := NewPostgres(nil, config.DatabaseConfig{MaxRows: 10})
	if p.Enabled() {
		t.Fatal("Enabled() with nil pool")
	}
	if _, err := p.LoadTable(context.Background(), "students"); !errors.Is(err, ErrNoDatabase) {
		t.Errorf("LoadTable err = %v", err)
	}
	if _, err := p.WriteTable(context.Background(), "students", dataset.New("x"), false); !errors.Is(err, ErrNoDatabase) {
		t.Errorf("WriteTable err = %v", err)
	}
}

func memorySQLite(t *testing.T, maxRows int) *SQLite {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		`CREATE TABLE "students" (age INTEGER, gender TEXT, gpa REAL)`,
		`INSERT INTO students VALUES (20, 'Male', 3.5), (NULL, 'female', NULL), (22, ' Other', 2.75)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}
	return NewSQLite(db, maxRows)
}

func TestSQLiteLoadTable(t *testing.T) {
	s := memorySQLite(t, 0)

	ds, err := s.LoadTable(context.Background(), "students")
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	if ds.Name != "students" || ds.Rows() != 3 {
		t.Fatalf("dataset %q with %d rows", ds.Name, ds.Rows())
	}

	age, _ := ds.Column("age")
	gpa, _ := ds.Column("gpa")
	gender, _ := ds.Column("gender")
	if age.Type != dataset.TypeInteger || !age.Values[1].IsNull() {
		t.Errorf("age = %+v", age)
	}
	if gpa.Type != dataset.TypeFloat {
		t.Errorf("gpa type = %v", gpa.Type)
	}
	if gender.Values[2].String() != " Other" {
		t.Errorf("gender[2] = %q, want whitespace kept", gender.Values[2].String())
	}
}

func TestSQLiteQueryRowLimit(t *testing.T) {
	s := memorySQLite(t, 2)

	if _, err := s.Query(context.Background(), "q", "SELECT * FROM students"); !errors.Is(err, ErrTooManyRows) {
		t.Errorf("err = %v, want ErrTooManyRows", err)
	}
	ds, err := s.Query(context.Background(), "q", "SELECT gender FROM students WHERE age > ?", 19)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if ds.Rows() != 2 || ds.NumColumns() != 1 {
		t.Errorf("shape = %v", ds.Shape())
	}
}

func TestOpenPoolWithoutURL(t *testing.T) {
	if _, err := OpenPool(context.Background(), config.DatabaseConfig{}); !errors.Is(err, ErrNoDatabase) {
		t.Errorf("err = %v, want ErrNoDatabase", err)
	}
}
