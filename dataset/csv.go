package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/scigo-obesity/pkg/errors"
)

// ReadCSV parses a comma-separated table with a header row. Each column is
// Numeric when every non-empty cell parses as a float, otherwise Categorical.
// Empty cells of a numeric column become NaN. Numeric columns keep the cell
// text too, so identifiers beyond float64 precision are written back intact.
func ReadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.Wrap(errors.ErrEmptyData, "ReadCSV: missing header")
	}
	if err != nil {
		return nil, errors.Wrap(err, "ReadCSV: header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	raw := make([][]string, len(header))
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// csv.ErrFieldCount covers ragged rows
			return nil, errors.Wrap(err, "ReadCSV")
		}
		for j, v := range record {
			raw[j] = append(raw[j], v)
		}
	}

	cols := make([]*Column, len(header))
	for j, name := range header {
		cols[j] = inferColumn(name, raw[j])
	}
	f, err := NewFrame(cols...)
	if err != nil {
		return nil, errors.Wrap(err, "ReadCSV")
	}
	return f, nil
}

// ReadCSVFile opens path and parses it with ReadCSV.
func ReadCSVFile(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer file.Close()

	f, err := ReadCSV(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return f, nil
}

func inferColumn(name string, values []string) *Column {
	nums := make([]float64, len(values))
	nonEmpty := 0
	for i, v := range values {
		if v == "" {
			nums[i] = math.NaN()
			continue
		}
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return NewCategoricalColumn(name, values)
		}
		nums[i] = x
		nonEmpty++
	}
	if nonEmpty == 0 && len(values) > 0 {
		return NewCategoricalColumn(name, values)
	}
	c := NewNumericColumn(name, nums)
	c.Raw = values
	return c
}

// WriteCSV writes a header and rows. There is no index column.
func WriteCSV(w io.Writer, header []string, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return errors.Wrap(err, "WriteCSV: header")
	}
	for i, row := range rows {
		if len(row) != len(header) {
			return errors.NewDimensionError("WriteCSV", len(header), len(row), 1)
		}
		if err := writer.Write(row); err != nil {
			return errors.Wrapf(err, "WriteCSV: row %d", i)
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "WriteCSV")
}

// WriteCSVFile creates path and writes the table with WriteCSV.
func WriteCSVFile(path string, header []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := WriteCSV(file, header, rows); err != nil {
		file.Close()
		return err
	}
	return errors.Wrapf(file.Close(), "failed to close %s", path)
}
