package core

import "strings"

// Policy selects how NormalizeField repairs a bound column.
type Policy uint8

const (
	// PolicyWordNumber maps spelled-out numbers to digits, coerces to
	// numeric, imputes the median and casts to integer.
	PolicyWordNumber Policy = iota + 1
	// PolicyBounded coerces to numeric, clips into [Lower, Upper] and
	// imputes the median.
	PolicyBounded
	// PolicyCategorical canonicalizes spellings and imputes the mode.
	PolicyCategorical
)

func (p Policy) String() string {
	switch p {
	case PolicyWordNumber:
		return "word_number"
	case PolicyBounded:
		return "bounded"
	case PolicyCategorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// FieldRule is the normalization recipe for one canonical field.
type FieldRule struct {
	Policy Policy

	// Words maps lowercase number words to their value (word-number only).
	Words map[string]int64

	// Lower and Upper bound the column (bounded only).
	Lower, Upper float64

	// Integer casts the result to integer after imputation.
	Integer bool

	// Values maps lowercase spellings to the canonical label (categorical only).
	Values map[string]string

	// TitleCase title-cases values that have no entry in Values.
	TitleCase bool
}

var ageWords = map[string]int64{
	"eighteen": 18, "nineteen": 19,
	"twenty": 20, "twentyone": 21, "twentytwo": 22, "twentythree": 23,
	"twentyfour": 24, "twentyfive": 25,
	"thirty": 30, "thirtyone": 31, "thirtytwo": 32,
}

var countWords = map[string]int64{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
}

var genderValues = map[string]string{
	"m": "Male", "male": "Male",
	"f": "Female", "female": "Female",
	"other": "Other",
}

var departmentValues = map[string]string{
	"comp sci": "Computer Science", "compsci": "Computer Science",
	"cs": "Computer Science", "comp": "Computer Science",
	"computer science": "Computer Science",
	"bio": "Biology", "biol": "Biology", "biology": "Biology",
	"math": "Mathematics", "mathematics": "Mathematics",
	"econ": "Economics", "economics": "Economics",
	"physics": "Physics",
	"chem": "Chemistry", "chemistry": "Chemistry",
	"eng": "Engineering", "engineering": "Engineering",
}

var graduatedValues = map[string]string{
	"yes": "Yes", "y": "Yes", "true": "Yes",
	"no": "No", "n": "No", "false": "No",
}

// DefaultRules returns the per-field normalization table.
func DefaultRules() map[CanonicalField]FieldRule {
	return map[CanonicalField]FieldRule{
		FieldAge:                  {Policy: PolicyWordNumber, Words: ageWords, Integer: true},
		FieldAssignmentsSubmitted: {Policy: PolicyWordNumber, Words: countWords, Integer: true},
		FieldAttendancePercent:    {Policy: PolicyBounded, Lower: 0, Upper: 100},
		FieldFinalExamScore:       {Policy: PolicyBounded, Lower: 0, Upper: 100, Integer: true},
		FieldGPA:                  {Policy: PolicyBounded, Lower: 0, Upper: 4},
		FieldGender:               {Policy: PolicyCategorical, Values: genderValues},
		FieldDepartment:           {Policy: PolicyCategorical, Values: departmentValues, TitleCase: true},
		FieldGraduated:            {Policy: PolicyCategorical, Values: graduatedValues},
	}
}

func lookupKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
