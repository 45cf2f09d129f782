package model

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scigo-obesity/pkg/errors"
)

func TestStateManager_Lifecycle(t *testing.T) {
	s := NewStateManager()

	err := s.RequireFitted("RandomForestClassifier", "Predict")
	var notFitted *errors.NotFittedError
	require.True(t, errors.As(err, &notFitted))
	assert.Equal(t, "Predict", notFitted.Method)

	s.SetDimensions(31, 1660)
	s.SetFitted()
	assert.NoError(t, s.RequireFitted("RandomForestClassifier", "Predict"))
	assert.NoError(t, s.RequireFeatures("Predict", 31))

	err = s.RequireFeatures("Predict", 30)
	var dimErr *errors.DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 31, dimErr.Expected)
	assert.Equal(t, 30, dimErr.Got)

	assert.Equal(t, ModelState{Fitted: true, NFeatures: 31, NSamples: 1660}, s.GetState())

	s.Reset()
	assert.False(t, s.IsFitted())
	nf, ns := s.GetDimensions()
	assert.Zero(t, nf)
	assert.Zero(t, ns)
}

type savedState struct {
	Columns []string
	State   ModelState
}

func TestPersistence_RoundTrip(t *testing.T) {
	in := savedState{Columns: []string{"Age", "Gender_Male"}, State: ModelState{Fitted: true, NFeatures: 2}}

	var buf bytes.Buffer
	require.NoError(t, SaveModelToWriter(in, &buf))

	var out savedState
	require.NoError(t, LoadModelFromReader(&out, &buf))
	assert.Equal(t, in, out)

	path := filepath.Join(t.TempDir(), "state.gob")
	require.NoError(t, SaveModel(in, path))
	out = savedState{}
	require.NoError(t, LoadModel(&out, path))
	assert.Equal(t, in, out)
}

func TestPersistence_Errors(t *testing.T) {
	var out savedState
	err := LoadModel(&out, filepath.Join(t.TempDir(), "missing.gob"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open file")

	err = LoadModelFromReader(&out, bytes.NewBufferString("not gob"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode model")
}
