package pipeline

import (
	"github.com/YuminosukeSato/scigo-obesity/core/model"
	"github.com/YuminosukeSato/scigo-obesity/pkg/errors"
	"github.com/YuminosukeSato/scigo-obesity/preprocessing"
	"github.com/YuminosukeSato/scigo-obesity/schema"
	"github.com/YuminosukeSato/scigo-obesity/sklearn/ensemble"
)

// Model is a trained forest together with the Feature Schema it was fit on
// and the label encoder that maps class codes back to labels.
type Model struct {
	Schema  schema.Schema
	Encoder *preprocessing.LabelEncoder
	Forest  *ensemble.RandomForestClassifier
}

// Predict returns a label for every row of X. X must already carry the
// model's Feature Schema in the same order.
func (m *Model) Predict(X *preprocessing.Encoded) ([]string, error) {
	if X == nil || X.Data == nil {
		return nil, errors.NewValueError("Model.Predict", "nil matrix")
	}
	if !m.Schema.Equal(X.Columns) {
		return nil, errors.NewValueError("Model.Predict", "feature schema differs from the training schema; reconcile it first")
	}
	codes, err := m.Forest.Predict(X.Data)
	if err != nil {
		return nil, err
	}
	return m.Encoder.InverseTransform(codes)
}

// artifact is the gob layout of a saved Model.
type artifact struct {
	Schema  []string
	Classes []string
	Forest  *ensemble.RandomForestClassifier
}

// SaveModel writes m to path as a gob artifact.
func SaveModel(m *Model, path string) error {
	a := artifact{
		Schema:  m.Schema,
		Classes: m.Encoder.Classes(),
		Forest:  m.Forest,
	}
	return errors.Wrap(model.SaveModel(&a, path), "SaveModel")
}

// LoadModel reads a Model written by SaveModel.
func LoadModel(path string) (*Model, error) {
	var a artifact
	if err := model.LoadModel(&a, path); err != nil {
		return nil, errors.Wrap(err, "LoadModel")
	}
	if a.Forest == nil || !a.Forest.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestClassifier", "LoadModel")
	}
	s := schema.Schema(a.Schema)
	if err := s.Validate(); err != nil {
		return nil, errors.Wrap(err, "LoadModel")
	}
	enc, err := preprocessing.NewLabelEncoderFromClasses(a.Classes)
	if err != nil {
		return nil, errors.Wrap(err, "LoadModel")
	}
	return &Model{Schema: s, Encoder: enc, Forest: a.Forest}, nil
}
