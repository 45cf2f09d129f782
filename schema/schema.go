// Package schema reconciles the feature schema of an independently encoded
// test matrix with the schema a model was trained on.
//
// Models address features by position, so a test matrix must have exactly the
// training columns in exactly the training order. Two datasets one-hot encoded
// on their own rarely agree: a level can be absent from one sample, or appear
// only at test time. The package handles this in four steps:
//
//  1. CheckLevels reports categorical attributes whose observed levels differ
//     between the raw train and test frames. This is a diagnostic only.
//  2. CorrectionTable.Apply remaps known test-only levels to training levels
//     before encoding, e.g. CALC "Always" -> "Frequently".
//  3. Reconcile adds every training column missing from the test matrix,
//     filled with zeros.
//  4. Reconcile then projects the test matrix onto the training schema,
//     dropping columns the model has never seen.
//
// None of these steps fails on a schema difference. Reconcile returns an error
// only for malformed input (nil matrix, duplicate schema names).
package schema

import (
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-obesity/pkg/errors"
	"github.com/YuminosukeSato/scigo-obesity/pkg/log"
	"github.com/YuminosukeSato/scigo-obesity/preprocessing"
)

// Schema is the ordered list of feature column names a model was trained on.
type Schema []string

// Validate reports an empty schema or duplicate names.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return errors.NewValueError("Schema.Validate", "empty schema")
	}
	seen := make(map[string]struct{}, len(s))
	for _, name := range s {
		if _, dup := seen[name]; dup {
			return errors.NewValueError("Schema.Validate", "duplicate column name "+strconv.Quote(name))
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Equal reports whether both schemas have the same names in the same order.
func (s Schema) Equal(other []string) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Report describes what Reconcile changed.
type Report struct {
	// Missing lists schema columns absent from the input, in schema order.
	// They were added filled with zeros.
	Missing []string
	// Dropped lists input columns absent from the schema, in input order.
	Dropped []string
}

// Changed reports whether the input differed from the schema in membership.
func (r Report) Changed() bool {
	return len(r.Missing) > 0 || len(r.Dropped) > 0
}

// Reconcile returns a copy of test whose columns are exactly trainSchema, in
// trainSchema order. Rows keep their count and order. Columns of trainSchema
// missing from test are filled with 0; columns of test missing from
// trainSchema are dropped. Reconciling an already reconciled matrix against
// the same schema returns an equal matrix and an empty Report.
func Reconcile(trainSchema Schema, test *preprocessing.Encoded) (*preprocessing.Encoded, Report, error) {
	if test == nil || test.Data == nil {
		return nil, Report{}, errors.NewValueError("Reconcile", "nil test matrix")
	}
	if err := trainSchema.Validate(); err != nil {
		return nil, Report{}, errors.Wrap(err, "Reconcile")
	}
	rows, cols := test.Data.Dims()
	if cols != len(test.Columns) {
		return nil, Report{}, errors.NewDimensionError("Reconcile", len(test.Columns), cols, 1)
	}

	position := make(map[string]int, len(test.Columns))
	for j, name := range test.Columns {
		position[name] = j
	}

	var report Report
	out := mat.NewDense(rows, len(trainSchema), nil)
	inSchema := make(map[string]struct{}, len(trainSchema))
	col := make([]float64, rows)
	for j, name := range trainSchema {
		inSchema[name] = struct{}{}
		src, ok := position[name]
		if !ok {
			report.Missing = append(report.Missing, name)
			continue // already zero
		}
		mat.Col(col, src, test.Data)
		out.SetCol(j, col)
	}
	for _, name := range test.Columns {
		if _, ok := inSchema[name]; !ok {
			report.Dropped = append(report.Dropped, name)
		}
	}

	if report.Changed() {
		log.GetLogger().Debug("Schema reconciled",
			log.ComponentKey, "schema",
			log.FeaturesKey, len(trainSchema),
			log.MissingColumnsKey, report.Missing,
			log.DroppedColumnsKey, report.Dropped,
		)
	}

	reconciled, err := preprocessing.NewEncoded(trainSchema, out)
	if err != nil {
		return nil, Report{}, errors.Wrap(err, "Reconcile")
	}
	return reconciled, report, nil
}
