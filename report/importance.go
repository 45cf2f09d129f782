// Package report ranks and renders feature importances.
package report

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/scigo-obesity/pkg/errors"
)

// DefaultTopK is the number of features printed after validation.
const DefaultTopK = 10

// Importance is the importance of one encoded feature.
type Importance struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"importance"`
}

// RankImportances pairs names with values and sorts them by descending
// importance. Ties are ordered by feature name.
func RankImportances(names []string, values []float64) ([]Importance, error) {
	if len(names) != len(values) {
		return nil, errors.NewDimensionError("RankImportances", len(names), len(values), 0)
	}
	ranked := make([]Importance, len(names))
	for i := range names {
		ranked[i] = Importance{Feature: names[i], Value: values[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Value != ranked[j].Value {
			return ranked[i].Value > ranked[j].Value
		}
		return ranked[i].Feature < ranked[j].Feature
	})
	return ranked, nil
}

func top(ranked []Importance, k int) []Importance {
	if k <= 0 || k > len(ranked) {
		k = len(ranked)
	}
	return ranked[:k]
}

// FormatImportances renders the first k entries as an aligned two column
// table. k <= 0 renders all of them.
func FormatImportances(ranked []Importance, k int) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "feature\timportance\t")
	for _, imp := range top(ranked, k) {
		fmt.Fprintf(w, "%s\t%.6f\t\n", imp.Feature, imp.Value)
	}
	w.Flush()
	return sb.String()
}

// PlotImportances draws a horizontal bar chart of the first k entries, the
// most important at the top. The image format follows the extension of
// path (png, svg, pdf, ...).
func PlotImportances(ranked []Importance, k int, path string) error {
	shown := top(ranked, k)
	if len(shown) == 0 {
		return errors.NewValueError("PlotImportances", "no importances to plot")
	}

	// bars are drawn bottom up
	values := make(plotter.Values, len(shown))
	names := make([]string, len(shown))
	for i, imp := range shown {
		j := len(shown) - 1 - i
		values[j] = imp.Value
		names[j] = imp.Feature
	}

	p := plot.New()
	p.Title.Text = "Feature importances"
	p.X.Label.Text = "mean impurity decrease"

	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return errors.Wrap(err, "PlotImportances: bar chart")
	}
	bars.Horizontal = true
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalY(names...)

	height := vg.Length(len(shown))*vg.Points(20) + 2*vg.Inch
	if err := p.Save(7*vg.Inch, height, path); err != nil {
		return errors.Wrapf(err, "PlotImportances: save %s", path)
	}
	return nil
}
