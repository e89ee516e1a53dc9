package core

import (
	"math"
	"testing"

	"github.com/JonMunkholm/datacleaner/internal/dataset"
)

func TestStats(t *testing.T) {
	x := []float64{4, 1, 2, 2, 100}

	if got := median(x); got != 2 {
		t.Errorf("median = %v, want 2", got)
	}
	if got := median([]float64{1, 2, 4, 3}); got != 2.5 {
		t.Errorf("even median = %v, want 2.5", got)
	}
	if got := quantile(x, 0.25); got != 2 {
		t.Errorf("q1 = %v, want 2", got)
	}
	if got := quantile(x, 0.75); got != 4 {
		t.Errorf("q3 = %v, want 4", got)
	}
	if got := mean([]float64{1, 2, 3}); got != 2 {
		t.Errorf("mean = %v", got)
	}
	if got := sampleStd([]float64{2, 4, 4, 4, 5, 5, 7, 9}); math.Abs(got-2.138) > 0.001 {
		t.Errorf("std = %v, want ~2.138", got)
	}
	if got := sampleStd([]float64{5}); got != 0 {
		t.Errorf("std of one = %v", got)
	}
	if x[0] != 4 {
		t.Error("median sorted its input")
	}
}

func TestMode(t *testing.T) {
	tests := []struct {
		name   string
		values []dataset.Value
		want   string
		ok     bool
	}{
		{"tie goes to first seen", []dataset.Value{dataset.Text("B"), dataset.Text("A"), dataset.Text("A"), dataset.Text("B")}, "B", true},
		{"clear winner", []dataset.Value{dataset.Int(1), dataset.Int(2), dataset.Int(2)}, "2", true},
		{"int and float share a key", []dataset.Value{dataset.Int(3), dataset.Float(3), dataset.Int(1)}, "3", true},
		{"all null", []dataset.Value{dataset.Null(), dataset.Null()}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := mode(tt.values)
			if ok != tt.ok || got.String() != tt.want {
				t.Errorf("mode = (%q, %v), want (%q, %v)", got.String(), ok, tt.want, tt.ok)
			}
		})
	}
}

func TestResolveAliases(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		field   CanonicalField
		want    string
		bound   bool
	}{
		{"literal attendance header", []string{"Attendance (%)", "x"}, FieldAttendancePercent, "Attendance (%)", true},
		{"priority order", []string{"Attendance", "attendance_percent"}, FieldAttendancePercent, "attendance_percent", true},
		{"exact match only", []string{"AGE ", "Ages"}, FieldAge, "", false},
		{"gpa upper", []string{"GPA"}, FieldGPA, "GPA", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := DefaultAliasTable().Resolve(tt.columns)
			got, ok := b.Column(tt.field)
			if ok != tt.bound || got != tt.want {
				t.Errorf("Column(%s) = (%q, %v), want (%q, %v)", tt.field, got, ok, tt.want, tt.bound)
			}
		})
	}

	t.Run("column claimed once", func(t *testing.T) {
		table := AliasTable{
			{FieldFinalExamScore, []string{"score"}},
			{FieldGPA, []string{"score"}},
		}
		b := table.Resolve([]string{"score"})
		if len(b) != 1 || b[0].Field != FieldFinalExamScore {
			t.Errorf("bindings = %+v", b)
		}
		if f, ok := b.Field("score"); !ok || f != FieldFinalExamScore {
			t.Errorf("Field(score) = %s, %v", f, ok)
		}
	})
}

func TestProfileDataset(t *testing.T) {
	rows := [][]any{{"a", 1}, {"a", 1}, {nil, 2}}
	for i := 0; i < 12; i++ {
		rows = append(rows, []any{string(rune('b' + i)), i})
	}
	ds := build(t, []string{"s", "n"}, rows...)

	p := ProfileDataset(ds)
	if p.Shape != (dataset.Shape{Rows: 15, Columns: 2}) {
		t.Errorf("shape = %s", p.Shape)
	}
	if p.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", p.Duplicates)
	}
	if p.Nulls != 1 {
		t.Errorf("nulls = %d, want 1", p.Nulls)
	}

	s, ok := p.Column("s")
	if !ok {
		t.Fatal("no profile for s")
	}
	if s.Type != "text" || s.Nulls != 1 {
		t.Errorf("s profile = %+v", s)
	}
	if len(s.Samples) != SampleSize {
		t.Fatalf("samples = %d, want %d", len(s.Samples), SampleSize)
	}
	if s.Samples[0].String() != "a" || s.Samples[1].String() != "b" {
		t.Errorf("samples not distinct first-seen: %v %v", s.Samples[0], s.Samples[1])
	}

	if n, _ := p.Column("n"); n.Type != "integer" {
		t.Errorf("n dtype = %q", n.Type)
	}
	if empty := ProfileDataset(nil); empty.Shape.Rows != 0 || len(empty.Columns) != 0 {
		t.Errorf("nil profile = %+v", empty)
	}
}
