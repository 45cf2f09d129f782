package schema

import (
	"sort"

	"github.com/YuminosukeSato/scigo-obesity/dataset"
	"github.com/YuminosukeSato/scigo-obesity/pkg/errors"
)

// Divergence is the symmetric difference of the observed levels of one
// categorical attribute between the train and test frames.
type Divergence struct {
	Attribute   string
	OnlyInTrain []string
	OnlyInTest  []string
}

// CheckLevels compares the observed levels of each attribute present in both
// frames. Digit-coded attributes compare their numeric levels. Every attribute with a non-empty symmetric
// difference "needs attention": it is raised as a LevelMismatchWarning
// through errors.Warn and returned. CheckLevels never fails.
//
// When attrs is empty the categorical columns of train are checked.
func CheckLevels(train, test *dataset.Frame, attrs []string) []Divergence {
	if train == nil || test == nil {
		return nil
	}
	if len(attrs) == 0 {
		attrs = train.CategoricalNames()
	}

	var out []Divergence
	for _, attr := range attrs {
		trainLevels, err := train.Levels(attr)
		if err != nil {
			continue
		}
		testLevels, err := test.Levels(attr)
		if err != nil {
			continue
		}
		d := Divergence{
			Attribute:   attr,
			OnlyInTrain: difference(trainLevels, testLevels),
			OnlyInTest:  difference(testLevels, trainLevels),
		}
		if len(d.OnlyInTrain) == 0 && len(d.OnlyInTest) == 0 {
			continue
		}
		errors.Warn(errors.NewLevelMismatchWarning(d.Attribute, d.OnlyInTrain, d.OnlyInTest))
		out = append(out, d)
	}
	return out
}

// difference returns the sorted elements of a not in b.
func difference(a, b []string) []string {
	in := make(map[string]struct{}, len(b))
	for _, v := range b {
		in[v] = struct{}{}
	}
	var out []string
	for _, v := range a {
		if _, ok := in[v]; !ok {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
