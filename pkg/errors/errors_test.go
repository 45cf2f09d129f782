package errors

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		kind     string
		err      error
		wantMsg  string
		hasStack bool
	}{
		{
			name:     "with original error",
			op:       "Fit",
			kind:     "invalid input",
			err:      fmt.Errorf("test error"),
			wantMsg:  "scigo: Fit: invalid input: test error",
			hasStack: true,
		},
		{
			name:     "without original error",
			op:       "Predict",
			kind:     "not fitted",
			err:      nil,
			wantMsg:  "scigo: Predict: not fitted",
			hasStack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			if tt.hasStack {
				formatted := fmt.Sprintf("%+v", err)
				if !strings.Contains(formatted, "errors_test.go") {
					t.Error("Expected stack trace to contain test file name")
				}
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("RandomForestClassifier.Predict", 31, 30, 1)

	want := "scigo: RandomForestClassifier.Predict: dimension mismatch on axis 1 (features). Expected 31, got 30"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("LabelEncoder", "Transform")

	want := "scigo: LabelEncoder: this model is not fitted yet. Call Fit() before using Transform()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestNewValueError(t *testing.T) {
	err := NewValueError("LabelEncoder.Transform", `unknown label "Obesity_Type_IV"`)

	want := `scigo: LabelEncoder.Transform: unknown label "Obesity_Type_IV"`
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var valErr *ValueError
	if !As(err, &valErr) {
		t.Error("Error should be castable to *ValueError")
	}
}

func TestLevelMismatchWarning(t *testing.T) {
	w := NewLevelMismatchWarning("CALC", nil, []string{"Always"})

	want := "CALC needs attention: levels only in train [], only in test [Always]"
	if w.Error() != want {
		t.Errorf("Error() = %v, want %v", w.Error(), want)
	}

	// zerologへの構造化出力
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	logger.Warn().EmbedObject(w).Msg("schema")

	out := buf.String()
	for _, s := range []string{`"attribute":"CALC"`, `"only_in_test":["Always"]`, `"type":"LevelMismatchWarning"`} {
		if !strings.Contains(out, s) {
			t.Errorf("expected %s in %s", s, out)
		}
	}
}

func TestWarnRouting(t *testing.T) {
	var got []error
	SetZerologWarnFunc(func(w error) { got = append(got, w) })
	defer SetZerologWarnFunc(nil)

	Warn(NewUnseenLevelWarning("CALC", "Always", "Frequently", 2))

	if len(got) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(got))
	}
	var unseen *UnseenLevelWarning
	if !As(got[0], &unseen) || unseen.Rows != 2 {
		t.Errorf("unexpected warning %v", got[0])
	}

	// zerologが未設定なら従来のハンドラ
	SetZerologWarnFunc(nil)
	var handled int
	SetWarningHandler(func(error) { handled++ })
	defer SetWarningHandler(func(w error) {})
	Warn(NewUndefinedMetricWarning("recall", "no true samples", 0))
	if handled != 1 {
		t.Errorf("expected fallback handler to be called once, got %d", handled)
	}
}

func TestCheckMatrix(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		1, 2,
		3, math.NaN(),
		5, 6,
	})

	err := CheckMatrix("RandomForestClassifier.Fit", X, 3, 2)
	if err == nil {
		t.Fatal("expected error for NaN input")
	}

	var numErr *NumericalInstabilityError
	if !As(err, &numErr) {
		t.Fatalf("expected NumericalInstabilityError, got %T", err)
	}
	if numErr.Iteration != 1 {
		t.Errorf("expected first bad row 1, got %d", numErr.Iteration)
	}

	if err := CheckMatrix("ok", mat.NewDense(1, 1, []float64{1}), 1, 1); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrap(ErrUnknownColumn, "in Frame.Drop")

	if !Is(wrapped, ErrUnknownColumn) {
		t.Error("Expected Is(wrapped, ErrUnknownColumn) to be true")
	}
	if !strings.Contains(wrapped.Error(), "in Frame.Drop") {
		t.Error("Expected wrapped error to contain wrapping message")
	}
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d rows, got %d", "ReadCSV", 10, 0)

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}

	expectedMsg := "in ReadCSV: expected 10 rows, got 0"
	if !strings.Contains(wrapped.Error(), expectedMsg) {
		t.Errorf("Expected wrapped error to contain %q", expectedMsg)
	}
}

func TestErrorChaining(t *testing.T) {
	err1 := fmt.Errorf("base error")
	err2 := Wrap(err1, "wrapped once")
	err3 := NewModelError("Operation", "failed", err2)

	if !strings.Contains(err3.Error(), "base error") {
		t.Error("Expected error chain to contain base error")
	}

	formatted := fmt.Sprintf("%+v", err3)
	if !strings.Contains(formatted, "errors_test.go") {
		t.Error("Expected detailed error to contain stack trace")
	}
}
