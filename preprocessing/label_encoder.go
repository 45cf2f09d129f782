package preprocessing

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-obesity/core/model"
	"github.com/YuminosukeSato/scigo-obesity/pkg/errors"
)

// LabelEncoder はscikit-learn互換のラベルエンコーダー
// 文字列ラベルを 0..n_classes-1 の整数に変換する（クラスは辞書順）
type LabelEncoder struct {
	state *model.StateManager

	// ClassLabels は学習したクラス（辞書順）
	ClassLabels []string

	index map[string]int
}

// NewLabelEncoder は新しいLabelEncoderを作成する
//
// 使用例:
//
//	le := preprocessing.NewLabelEncoder()
//	y, err := le.FitTransform(labels)
//	names, err := le.InverseTransform(predictions)
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{state: model.NewStateManager()}
}

// Fit はラベルの集合を学習する
func (e *LabelEncoder) Fit(labels []string) error {
	if len(labels) == 0 {
		return errors.NewModelError("LabelEncoder.Fit", "empty data", errors.ErrEmptyData)
	}

	seen := make(map[string]struct{})
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	classes := make([]string, 0, len(seen))
	for l := range seen {
		classes = append(classes, l)
	}
	sort.Strings(classes)

	e.setClasses(classes)
	e.state.SetDimensions(1, len(labels))
	e.state.SetFitted()
	return nil
}

func (e *LabelEncoder) setClasses(classes []string) {
	e.ClassLabels = classes
	e.index = make(map[string]int, len(classes))
	for i, c := range classes {
		e.index[c] = i
	}
}

// Transform はラベルを整数コードのベクトルに変換する
// 学習時に存在しなかったラベルは ValueError
func (e *LabelEncoder) Transform(labels []string) (*mat.VecDense, error) {
	if err := e.state.RequireFitted("LabelEncoder", "Transform"); err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, errors.NewModelError("LabelEncoder.Transform", "empty data", errors.ErrEmptyData)
	}

	codes := make([]float64, len(labels))
	for i, l := range labels {
		c, ok := e.index[l]
		if !ok {
			return nil, errors.NewValueError("LabelEncoder.Transform",
				fmt.Sprintf("y contains previously unseen label %s", strconv.Quote(l)))
		}
		codes[i] = float64(c)
	}
	return mat.NewVecDense(len(codes), codes), nil
}

// FitTransform はFitとTransformを同時に実行する
func (e *LabelEncoder) FitTransform(labels []string) (*mat.VecDense, error) {
	if err := e.Fit(labels); err != nil {
		return nil, err
	}
	return e.Transform(labels)
}

// InverseTransform は整数コード（n x 1 の行列またはベクトル）をラベルに戻す
func (e *LabelEncoder) InverseTransform(y mat.Matrix) ([]string, error) {
	if err := e.state.RequireFitted("LabelEncoder", "InverseTransform"); err != nil {
		return nil, err
	}
	r, c := y.Dims()
	if c != 1 {
		return nil, errors.NewDimensionError("LabelEncoder.InverseTransform", 1, c, 1)
	}

	labels := make([]string, r)
	for i := 0; i < r; i++ {
		v := y.At(i, 0)
		code := int(v)
		if v != math.Trunc(v) || code < 0 || code >= len(e.ClassLabels) {
			return nil, errors.NewValueError("LabelEncoder.InverseTransform",
				fmt.Sprintf("y contains invalid class code %v", v))
		}
		labels[i] = e.ClassLabels[code]
	}
	return labels, nil
}

// Classes は学習したクラスのコピーを返す
func (e *LabelEncoder) Classes() []string {
	return append([]string(nil), e.ClassLabels...)
}

// NClasses はクラス数を返す
func (e *LabelEncoder) NClasses() int {
	return len(e.ClassLabels)
}

// IsFitted は学習済みかどうかを返す
func (e *LabelEncoder) IsFitted() bool {
	return e.state.IsFitted()
}

// NewLabelEncoderFromClasses は保存済みのクラス一覧から学習済みのエンコーダーを復元する
func NewLabelEncoderFromClasses(classes []string) (*LabelEncoder, error) {
	if len(classes) == 0 {
		return nil, errors.NewModelError("NewLabelEncoderFromClasses", "empty data", errors.ErrEmptyData)
	}
	e := NewLabelEncoder()
	e.setClasses(append([]string(nil), classes...))
	e.state.SetDimensions(1, 0)
	e.state.SetFitted()
	return e, nil
}
