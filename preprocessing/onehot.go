package preprocessing

import (
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-obesity/dataset"
	"github.com/YuminosukeSato/scigo-obesity/pkg/errors"
)

// Encoded は数値化済みの特徴量行列と、その列名（Feature Schema）の組
//
// Columns[j] は Data の j 列目の名前。モデルは列を位置で参照するため、
// 学習時と予測時で Columns の中身と順序が一致している必要がある。
type Encoded struct {
	Columns []string
	Data    *mat.Dense
}

// NewEncoded は列名と行列から Encoded を作成する
// 列数の不一致と列名の重複はエラー
func NewEncoded(columns []string, data *mat.Dense) (*Encoded, error) {
	if data == nil {
		return nil, errors.NewValueError("NewEncoded", "nil matrix")
	}
	_, c := data.Dims()
	if c != len(columns) {
		return nil, errors.NewDimensionError("NewEncoded", len(columns), c, 1)
	}
	seen := make(map[string]struct{}, len(columns))
	for _, name := range columns {
		if _, dup := seen[name]; dup {
			return nil, errors.NewValueError("NewEncoded", "duplicate column name "+strconv.Quote(name))
		}
		seen[name] = struct{}{}
	}
	return &Encoded{Columns: append([]string(nil), columns...), Data: data}, nil
}

// Schema は列名のコピーを返す
func (e *Encoded) Schema() []string {
	return append([]string(nil), e.Columns...)
}

// Dims は (行数, 列数) を返す
func (e *Encoded) Dims() (int, int) {
	return e.Data.Dims()
}

// ColumnIndex は列名の位置を返す
func (e *Encoded) ColumnIndex(name string) (int, bool) {
	for j, c := range e.Columns {
		if c == name {
			return j, true
		}
	}
	return -1, false
}

// GetDummies はカテゴリ列をワンホット展開する（pandas.get_dummies と同じ列構成）
//
// 出力の列順:
//  1. columns に含まれない列（元の順序のまま、数値列のみ）
//  2. columns の各列について、観測された水準ごとに "列名_水準" の指示列
//     （水準は辞書順）
//
// 空文字のセルは欠損として扱い、どの指示列も 1 にならない。
// 数値として読み込まれた列も columns に含めれば展開する。水準名は数値の
// 最短表記（"1.0" は "1"）で、水準は数値順、NaN は欠損扱い。
//
// パラメータ:
//   - frame: 入力テーブル（ラベル列は事前に取り除いておくこと）
//   - columns: 展開するカテゴリ列
//
// 使用例:
//
//	enc, err := preprocessing.GetDummies(train, []string{"Gender", "CALC"})
//	// enc.Columns: [Age ... Gender_Female Gender_Male CALC_Frequently ...]
func GetDummies(frame *dataset.Frame, columns []string) (*Encoded, error) {
	if frame == nil {
		return nil, errors.NewValueError("GetDummies", "nil frame")
	}
	if frame.NRows() == 0 {
		return nil, errors.NewModelError("GetDummies", "empty data", errors.ErrEmptyData)
	}

	encode := make(map[string]struct{}, len(columns))
	for _, name := range columns {
		if _, err := frame.Column(name); err != nil {
			return nil, errors.Wrap(err, "GetDummies")
		}
		encode[name] = struct{}{}
	}

	type source struct {
		num   []float64
		col   *dataset.Column
		level string
	}
	var names []string
	var sources []source

	for _, c := range frame.Columns() {
		if _, ok := encode[c.Name]; ok {
			continue
		}
		if c.Kind != dataset.Numeric {
			return nil, errors.NewValueError("GetDummies",
				"categorical column "+strconv.Quote(c.Name)+" is neither encoded nor dropped")
		}
		names = append(names, c.Name)
		sources = append(sources, source{num: c.Num})
	}

	for _, name := range columns {
		c, _ := frame.Column(name)
		for _, level := range c.Levels() {
			if level == "" {
				continue
			}
			names = append(names, name+"_"+level)
			sources = append(sources, source{col: c, level: level})
		}
	}

	if len(names) == 0 {
		return nil, errors.NewModelError("GetDummies", "no feature columns", errors.ErrEmptyData)
	}

	n := frame.NRows()
	data := mat.NewDense(n, len(names), nil)
	for j, src := range sources {
		for i := 0; i < n; i++ {
			if src.num != nil {
				data.Set(i, j, src.num[i])
			} else if src.col.Level(i) == src.level {
				data.Set(i, j, 1)
			}
		}
	}

	return NewEncoded(names, data)
}
