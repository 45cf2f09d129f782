package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"text/tabwriter"
)

// Head renders the first n rows as an aligned table with a row index column.
func (f *Frame) Head(n int) string {
	if n > f.nRows {
		n = f.nRows
	}
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "\t"+strings.Join(f.Names(), "\t")+"\n")
	for i := 0; i < n; i++ {
		cells := make([]string, len(f.columns))
		for j, c := range f.columns {
			cells[j] = c.String(i)
		}
		fmt.Fprintf(tw, "%d\t%s\n", i, strings.Join(cells, "\t"))
	}
	tw.Flush()
	fmt.Fprintf(&sb, "\n[%d rows x %d columns]\n", f.nRows, len(f.columns))
	return sb.String()
}

// Info renders the per-column non-null counts and kinds.
func (f *Frame) Info() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "RangeIndex: %d entries\n", f.nRows)
	fmt.Fprintf(&sb, "Data columns (total %d columns):\n", len(f.columns))
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, " #\tColumn\tNon-Null Count\tDtype")
	for i, c := range f.columns {
		fmt.Fprintf(tw, " %d\t%s\t%d non-null\t%s\n", i, c.Name, nonNull(c), c.Kind)
	}
	tw.Flush()
	return sb.String()
}

func nonNull(c *Column) int {
	n := 0
	if c.Kind == Numeric {
		for _, v := range c.Num {
			if !math.IsNaN(v) {
				n++
			}
		}
		return n
	}
	for _, v := range c.Str {
		if v != "" {
			n++
		}
	}
	return n
}

// NUnique is the number of distinct values of one column.
type NUnique struct {
	Name  string
	Count int
}

// NUnique returns the distinct-value count of every column, highest first.
// Ties keep frame order.
func (f *Frame) NUnique() []NUnique {
	out := make([]NUnique, len(f.columns))
	for i, c := range f.columns {
		seen := make(map[string]struct{})
		for r := 0; r < c.Len(); r++ {
			seen[c.Level(r)] = struct{}{}
		}
		out[i] = NUnique{Name: c.Name, Count: len(seen)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// ValueCount is the frequency of one level.
type ValueCount struct {
	Value   string
	Count   int
	Percent float64 // share of rows in percent, rounded to 2 decimals
}

// ValueCounts returns the frequency of each value of the named column, most
// frequent first. Ties are ordered by value.
func (f *Frame) ValueCounts(name string) ([]ValueCount, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for r := 0; r < c.Len(); r++ {
		counts[c.Level(r)]++
	}
	out := make([]ValueCount, 0, len(counts))
	for v, n := range counts {
		pct := 0.0
		if f.nRows > 0 {
			pct = math.Round(float64(n)*100/float64(f.nRows)*100) / 100
		}
		out = append(out, ValueCount{Value: v, Count: n, Percent: pct})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out, nil
}

// FormatValueCounts renders value counts as "value  count  percent" lines.
func FormatValueCounts(name string, vcs []ValueCount) string {
	var sb strings.Builder
	fmt.Fprintln(&sb, name)
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	for _, vc := range vcs {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\n", vc.Value, vc.Count, vc.Percent)
	}
	tw.Flush()
	return sb.String()
}

// FormatNUnique renders NUnique results one column per line.
func FormatNUnique(nu []NUnique) string {
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	for _, n := range nu {
		fmt.Fprintf(tw, "%s\t%d\n", n.Name, n.Count)
	}
	tw.Flush()
	return sb.String()
}
