package schema

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/scigo-obesity/dataset"
	"github.com/YuminosukeSato/scigo-obesity/pkg/errors"
)

// Correction maps a level seen only at test time to a level the model was
// trained on.
type Correction struct {
	Attribute string `yaml:"attribute"`
	From      string `yaml:"from"`
	To        string `yaml:"to"`
}

func (c Correction) String() string {
	return fmt.Sprintf("%s: %s -> %s", c.Attribute, c.From, c.To)
}

// CorrectionTable is an ordered set of corrections keyed by (Attribute, From).
// There is no rule for picking the replacement level; every entry is curated.
type CorrectionTable []Correction

// DefaultCorrections is the single fix found by inspecting the obesity data:
// "Always" occurs in the test CALC column but never in training.
func DefaultCorrections() CorrectionTable {
	return CorrectionTable{{Attribute: "CALC", From: "Always", To: "Frequently"}}
}

// Validate rejects empty fields, identity mappings and conflicting keys.
func (t CorrectionTable) Validate() error {
	seen := make(map[[2]string]string, len(t))
	for i, c := range t {
		if c.Attribute == "" || c.From == "" || c.To == "" {
			return errors.NewValidationError(fmt.Sprintf("corrections[%d]", i), "attribute, from and to are required", c)
		}
		if c.From == c.To {
			return errors.NewValidationError(fmt.Sprintf("corrections[%d]", i), "from equals to", c)
		}
		key := [2]string{c.Attribute, c.From}
		if to, dup := seen[key]; dup && to != c.To {
			return errors.NewValidationError(fmt.Sprintf("corrections[%d]", i), "conflicting mapping for "+c.Attribute+"/"+c.From, c)
		}
		seen[key] = c.To
	}
	return nil
}

// Applied records one correction and the number of rows it changed.
type Applied struct {
	Correction
	Rows int
}

// Apply returns a frame with every (attribute, from) cell replaced by its
// target level. The input frame is not modified. Lookups are single pass:
// a replaced value is not looked up again. Attributes absent from the frame
// or not categorical are skipped. Each correction that changed at least one
// row is raised as an UnseenLevelWarning and returned.
func (t CorrectionTable) Apply(frame *dataset.Frame) (*dataset.Frame, []Applied, error) {
	if frame == nil {
		return nil, nil, errors.NewValueError("CorrectionTable.Apply", "nil frame")
	}
	if err := t.Validate(); err != nil {
		return nil, nil, err
	}

	byAttr := make(map[string]map[string]int)
	var attrs []string
	for i, c := range t {
		m, ok := byAttr[c.Attribute]
		if !ok {
			m = make(map[string]int)
			byAttr[c.Attribute] = m
			attrs = append(attrs, c.Attribute)
		}
		if _, dup := m[c.From]; !dup {
			m[c.From] = i
		}
	}

	out := frame
	counts := make([]int, len(t))
	for _, attr := range attrs {
		col, err := frame.Column(attr)
		if err != nil || col.Kind != dataset.Categorical {
			continue
		}
		rules := byAttr[attr]
		values := make([]string, len(col.Str))
		for i, v := range col.Str {
			if idx, ok := rules[v]; ok {
				values[i] = t[idx].To
				counts[idx]++
				continue
			}
			values[i] = v
		}
		if out, err = out.WithColumn(dataset.NewCategoricalColumn(attr, values)); err != nil {
			return nil, nil, errors.Wrap(err, "CorrectionTable.Apply")
		}
	}

	var applied []Applied
	for i, n := range counts {
		if n == 0 {
			continue
		}
		applied = append(applied, Applied{Correction: t[i], Rows: n})
		errors.Warn(errors.NewUnseenLevelWarning(t[i].Attribute, t[i].From, t[i].To, n))
	}
	return out, applied, nil
}

type correctionsFile struct {
	Corrections CorrectionTable `yaml:"corrections"`
}

// LoadCorrections parses a YAML document of the form
//
//	corrections:
//	  - attribute: CALC
//	    from: Always
//	    to: Frequently
func LoadCorrections(r io.Reader) (CorrectionTable, error) {
	var doc correctionsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "LoadCorrections: decode yaml")
	}
	if err := doc.Corrections.Validate(); err != nil {
		return nil, errors.Wrap(err, "LoadCorrections")
	}
	return doc.Corrections, nil
}

// LoadCorrectionsFile reads a correction table from path.
func LoadCorrectionsFile(path string) (CorrectionTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer file.Close()
	return LoadCorrections(file)
}
