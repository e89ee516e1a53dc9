package core

// CanonicalField is a semantic column role the cleaner knows how to repair.
type CanonicalField string

const (
	FieldAge                  CanonicalField = "age"
	FieldGender               CanonicalField = "gender"
	FieldDepartment           CanonicalField = "department"
	FieldAttendancePercent    CanonicalField = "attendance_percent"
	FieldAssignmentsSubmitted CanonicalField = "assignments_submitted"
	FieldFinalExamScore       CanonicalField = "final_exam_score"
	FieldGraduated            CanonicalField = "graduated"
	FieldGPA                  CanonicalField = "gpa"
)

// AliasEntry lists the accepted column spellings for one field, highest
// priority first.
type AliasEntry struct {
	Field   CanonicalField `json:"field" yaml:"field" mapstructure:"field"`
	Aliases []string       `json:"aliases" yaml:"aliases" mapstructure:"aliases"`
}

// AliasTable is an ordered list of alias entries. Order decides which field
// claims a column when two fields list the same spelling.
type AliasTable []AliasEntry

// DefaultAliasTable returns the built-in spellings for student records.
func DefaultAliasTable() AliasTable {
	return AliasTable{
		{FieldAge, []string{"age", "Age", "AGE"}},
		{FieldGender, []string{"gender", "Gender", "GENDER"}},
		{FieldDepartment, []string{"department", "Department", "DEPARTMENT"}},
		{FieldAttendancePercent, []string{"attendance_percent", "attendance", "Attendance", "Attendance (%)", "ATTENDANCE", "Attendance_Percent"}},
		{FieldAssignmentsSubmitted, []string{"assignments_submitted", "assignments", "Assignments", "Assignments_Submitted", "ASSIGNMENTS"}},
		{FieldFinalExamScore, []string{"final_exam_score", "final_score", "Final_Exam_Score", "exam_score", "Final_Score", "FINAL_SCORE"}},
		{FieldGraduated, []string{"graduated", "Graduated", "GRADUATED"}},
		{FieldGPA, []string{"gpa", "GPA", "Gpa"}},
	}
}

// Binding ties a canonical field to the dataset column that carries it.
type Binding struct {
	Field  CanonicalField `json:"field"`
	Column string         `json:"column"`
}

// Bindings is the ordered result of alias resolution.
type Bindings []Binding

// Column returns the column bound to f.
func (b Bindings) Column(f CanonicalField) (string, bool) {
	for _, x := range b {
		if x.Field == f {
			return x.Column, true
		}
	}
	return "", false
}

// Field returns the field a column is bound to.
func (b Bindings) Field(column string) (CanonicalField, bool) {
	for _, x := range b {
		if x.Column == column {
			return x.Field, true
		}
	}
	return "", false
}

// Map returns the bindings as field -> column.
func (b Bindings) Map() map[CanonicalField]string {
	m := make(map[CanonicalField]string, len(b))
	for _, x := range b {
		m[x.Field] = x.Column
	}
	return m
}

// Resolve binds each field in table order to the first of its aliases that
// names a column exactly. A column is claimed by at most one field; fields
// with no match are left out.
func (t AliasTable) Resolve(columns []string) Bindings {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}

	claimed := make(map[string]bool)
	bound := make(map[CanonicalField]bool)
	var out Bindings
	for _, entry := range t {
		if bound[entry.Field] {
			continue
		}
		for _, alias := range entry.Aliases {
			if present[alias] && !claimed[alias] {
				out = append(out, Binding{Field: entry.Field, Column: alias})
				claimed[alias] = true
				bound[entry.Field] = true
				break
			}
		}
	}
	return out
}
