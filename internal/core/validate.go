package core

import "github.com/JonMunkholm/datacleaner/internal/dataset"

// ValidationReport compares the original snapshot with the cleaned dataset.
type ValidationReport struct {
	OriginalShape    dataset.Shape `json:"original_shape" yaml:"original_shape"`
	FinalShape       dataset.Shape `json:"final_shape" yaml:"final_shape"`
	RowsRemoved      int           `json:"rows_removed" yaml:"rows_removed"`
	ColumnsRemoved   int           `json:"columns_removed" yaml:"columns_removed"`
	NullsBefore      int           `json:"nulls_before" yaml:"nulls_before"`
	NullsAfter       int           `json:"nulls_after" yaml:"nulls_after"`
	DuplicatesBefore int           `json:"duplicates_before" yaml:"duplicates_before"`
	DuplicatesAfter  int           `json:"duplicates_after" yaml:"duplicates_after"`
}

// Validate diffs original against final. Neither is modified.
func Validate(original, final *dataset.Dataset) ValidationReport {
	if original == nil {
		original = dataset.New("")
	}
	if final == nil {
		final = dataset.New("")
	}
	before, after := original.Shape(), final.Shape()
	return ValidationReport{
		OriginalShape:    before,
		FinalShape:       after,
		RowsRemoved:      before.Rows - after.Rows,
		ColumnsRemoved:   before.Columns - after.Columns,
		NullsBefore:      original.NullCount(),
		NullsAfter:       final.NullCount(),
		DuplicatesBefore: original.DuplicateCount(),
		DuplicatesAfter:  final.DuplicateCount(),
	}
}
