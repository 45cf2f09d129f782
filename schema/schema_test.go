package schema

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-obesity/pkg/errors"
	"github.com/YuminosukeSato/scigo-obesity/preprocessing"
)

func encoded(t *testing.T, columns []string, rows int, data []float64) *preprocessing.Encoded {
	t.Helper()
	e, err := preprocessing.NewEncoded(columns, mat.NewDense(rows, len(columns), data))
	require.NoError(t, err)
	return e
}

func column(e *preprocessing.Encoded, name string) []float64 {
	j, ok := e.ColumnIndex(name)
	if !ok {
		return nil
	}
	r, _ := e.Dims()
	return mat.Col(make([]float64, r), j, e.Data)
}

func TestReconcile_Scenario(t *testing.T) {
	S := Schema{"id", "Gender_Male", "Gender_Female", "CALC_Frequently"}
	T := encoded(t, []string{"id", "Gender_Male", "CALC_Sometimes"}, 3, []float64{
		10, 1, 1,
		11, 0, 0,
		12, 1, 0,
	})

	out, report, err := Reconcile(S, T)
	require.NoError(t, err)

	if diff := cmp.Diff([]string(S), out.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	want := mat.NewDense(3, 4, []float64{
		10, 1, 0, 0,
		11, 0, 0, 0,
		12, 1, 0, 0,
	})
	assert.True(t, mat.Equal(want, out.Data), "got\n%v", mat.Formatted(out.Data))
	assert.Equal(t, []string{"Gender_Female", "CALC_Frequently"}, report.Missing)
	assert.Equal(t, []string{"CALC_Sometimes"}, report.Dropped)
	assert.True(t, report.Changed())

	// input untouched
	assert.Equal(t, []string{"id", "Gender_Male", "CALC_Sometimes"}, T.Columns)
	assert.Equal(t, 1.0, T.Data.At(0, 2))
}

func TestReconcile_ReordersToSchema(t *testing.T) {
	S := Schema{"a", "b", "c"}
	T := encoded(t, []string{"c", "a", "b"}, 2, []float64{
		3, 1, 2,
		6, 4, 5,
	})

	out, report, err := Reconcile(S, T)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, out.Columns)
	assert.True(t, mat.Equal(mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6}), out.Data))
	assert.False(t, report.Changed())
}

func TestReconcile_Idempotent(t *testing.T) {
	S := Schema{"Age", "CALC_Frequently", "CALC_Sometimes", "MTRANS_Walking"}
	T := encoded(t, []string{"CALC_Sometimes", "Age", "CALC_Always"}, 2, []float64{
		1, 23, 0,
		0, 31, 1,
	})

	once, _, err := Reconcile(S, T)
	require.NoError(t, err)
	twice, report, err := Reconcile(S, once)
	require.NoError(t, err)

	assert.Equal(t, once.Columns, twice.Columns)
	assert.True(t, mat.Equal(once.Data, twice.Data))
	assert.Equal(t, Report{}, report)
}

func TestReconcile_Errors(t *testing.T) {
	T := encoded(t, []string{"a"}, 1, []float64{1})

	tests := []struct {
		name   string
		schema Schema
		test   *preprocessing.Encoded
	}{
		{"nil matrix", Schema{"a"}, nil},
		{"nil data", Schema{"a"}, &preprocessing.Encoded{Columns: []string{"a"}}},
		{"duplicate schema names", Schema{"a", "a"}, T},
		{"empty schema", Schema{}, T},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Reconcile(tt.schema, tt.test)
			var valErr *errors.ValueError
			assert.True(t, errors.As(err, &valErr), "expected ValueError, got %v", err)
		})
	}

	_, _, err := Reconcile(Schema{"a"}, &preprocessing.Encoded{Columns: []string{"a", "b"}, Data: mat.NewDense(1, 1, nil)})
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

// TestReconcile_Properties checks the contract on random schemas.
func TestReconcile_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(28, 0))
	universe := make([]string, 20)
	for i := range universe {
		universe[i] = fmt.Sprintf("f%02d", i)
	}

	for trial := 0; trial < 200; trial++ {
		S := Schema(pick(rng, universe, 1+rng.IntN(10)))
		cols := pick(rng, universe, 1+rng.IntN(10))
		rows := 1 + rng.IntN(5)
		data := make([]float64, rows*len(cols))
		for i := range data {
			data[i] = float64(1 + rng.IntN(9)) // never zero
		}
		T := encoded(t, cols, rows, data)

		out, report, err := Reconcile(S, T)
		require.NoError(t, err)

		r, c := out.Dims()
		require.Equal(t, rows, r, "row count")
		require.Equal(t, len(S), c, "column count")
		require.Equal(t, []string(S), out.Columns, "order of S")

		for _, name := range S {
			got := column(out, name)
			if src := column(T, name); src != nil {
				assert.Equal(t, src, got, "column %s keeps row order", name)
			} else {
				assert.Equal(t, make([]float64, rows), got, "column %s zero filled", name)
				assert.Contains(t, report.Missing, name)
			}
		}
		for _, name := range cols {
			if !contains(S, name) {
				_, ok := out.ColumnIndex(name)
				assert.False(t, ok, "extra column %s dropped", name)
				assert.Contains(t, report.Dropped, name)
			}
		}

		again, _, err := Reconcile(S, out)
		require.NoError(t, err)
		assert.True(t, mat.Equal(out.Data, again.Data), "idempotent")
	}
}

func pick(rng *rand.Rand, universe []string, n int) []string {
	perm := rng.Perm(len(universe))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = universe[perm[i]]
	}
	return out
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func TestSchema_Equal(t *testing.T) {
	s := Schema{"a", "b"}
	assert.True(t, s.Equal([]string{"a", "b"}))
	assert.False(t, s.Equal([]string{"b", "a"}))
	assert.False(t, s.Equal([]string{"a"}))
}
