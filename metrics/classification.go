// Package metrics provides classification metrics over gonum vectors and
// matrices.
package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-obesity/pkg/errors"
)

// logLossEps は log(0) を避けるためのクリップ幅
const logLossEps = 1e-15

func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError は誤分類率 (1 - Accuracy) を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "ClassificationError")
	}
	return 1 - acc, nil
}

// columnVectors は n×k 行列の先頭列を VecDense に変換する
func columnVectors(op string, yTrue, yPred mat.Matrix) (*mat.VecDense, *mat.VecDense, error) {
	if yTrue == nil || yPred == nil {
		return nil, nil, errors.NewValueError(op, "nil matrix")
	}
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()
	if rTrue == 0 || cTrue == 0 || rPred == 0 || cPred == 0 {
		return nil, nil, errors.NewValueError(op, "empty matrix")
	}
	if rTrue != rPred {
		return nil, nil, errors.NewDimensionError(op, rTrue, rPred, 0)
	}
	t := mat.NewVecDense(rTrue, nil)
	p := mat.NewVecDense(rPred, nil)
	for i := 0; i < rTrue; i++ {
		t.SetVec(i, yTrue.At(i, 0))
		p.SetVec(i, yPred.At(i, 0))
	}
	return t, p, nil
}

// AccuracyMatrix は Predict が返す n×1 行列に対して正解率を計算する
func AccuracyMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := columnVectors("AccuracyMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return Accuracy(t, p)
}

// ConfusionMatrix は nClasses×nClasses の混同行列を返す。
// 行が正解クラス、列が予測クラスで、値はクラス番号 0..nClasses-1。
func ConfusionMatrix(yTrue, yPred *mat.VecDense, nClasses int) (*mat.Dense, error) {
	n, err := checkPair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, err
	}
	if nClasses < 1 {
		return nil, errors.NewValueError("ConfusionMatrix", "nClasses must be positive")
	}

	cm := mat.NewDense(nClasses, nClasses, nil)
	for i := 0; i < n; i++ {
		t, p := yTrue.AtVec(i), yPred.AtVec(i)
		if !isClassCode(t, nClasses) || !isClassCode(p, nClasses) {
			return nil, errors.NewValueError("ConfusionMatrix", "labels must be class codes in [0, nClasses)")
		}
		cm.Set(int(t), int(p), cm.At(int(t), int(p))+1)
	}
	return cm, nil
}

func isClassCode(v float64, nClasses int) bool {
	return v == math.Trunc(v) && v >= 0 && int(v) < nClasses
}

// LogLoss は多クラスの交差エントロピーを計算する。
// yTrue はクラス番号、proba は n×nClasses の確率行列で、
// 確率は [1e-15, 1-1e-15] にクリップされる。
func LogLoss(yTrue *mat.VecDense, proba mat.Matrix) (float64, error) {
	if yTrue == nil || yTrue.Len() == 0 || proba == nil {
		return 0, errors.NewValueError("LogLoss", "empty input")
	}
	n := yTrue.Len()
	rows, nClasses := proba.Dims()
	if rows != n {
		return 0, errors.NewDimensionError("LogLoss", n, rows, 0)
	}

	var sum float64
	for i := 0; i < n; i++ {
		t := yTrue.AtVec(i)
		if !isClassCode(t, nClasses) {
			return 0, errors.NewValueError("LogLoss", "labels must be class codes in [0, nClasses)")
		}
		p := errors.ClipValue(proba.At(i, int(t)), logLossEps, 1-logLossEps)
		sum -= math.Log(p)
	}
	return sum / float64(n), nil
}

func checkBinary(op string, y *mat.VecDense) error {
	for i := 0; i < y.Len(); i++ {
		if v := y.AtVec(i); v != 0 && v != 1 {
			return errors.NewValueError(op, "labels must be 0 or 1")
		}
	}
	return nil
}

// BinaryLogLoss は二値分類の交差エントロピーを計算する
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("BinaryLogLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}
	if err := errors.CheckNumericalStability("BinaryLogLoss", mat.Col(nil, 0, yPred)); err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		p := errors.ClipValue(yPred.AtVec(i), logLossEps, 1-logLossEps)
		if yTrue.AtVec(i) == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(n), nil
}

// AUC は ROC 曲線下面積を Mann-Whitney 統計量として計算する。
// 同順位は 0.5 として数える。片方のクラスしかない場合は未定義のため
// UndefinedMetricWarning を出して 0.5 を返す。
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("AUC", yTrue); err != nil {
		return 0, err
	}
	if err := errors.CheckNumericalStability("AUC", mat.Col(nil, 0, yScore)); err != nil {
		return 0, err
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return yScore.AtVec(idx[a]) < yScore.AtVec(idx[b]) })

	// average ranks over tied scores
	var rankSumPos float64
	nPos := 0
	for i := 0; i < n; {
		j := i
		for j+1 < n && yScore.AtVec(idx[j+1]) == yScore.AtVec(idx[i]) {
			j++
		}
		rank := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			if yTrue.AtVec(idx[k]) == 1 {
				rankSumPos += rank
				nPos++
			}
		}
		i = j + 1
	}

	nNeg := n - nPos
	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("AUC", "only one class present in y_true", 0.5))
		return 0.5, nil
	}
	u := rankSumPos - float64(nPos*(nPos+1))/2
	return u / float64(nPos*nNeg), nil
}

// AUCMatrix は行列の先頭列に対して AUC を計算する
func AUCMatrix(yTrue, yScore mat.Matrix) (float64, error) {
	t, s, err := columnVectors("AUCMatrix", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	return AUC(t, s)
}

// MacroAUC は one-vs-rest AUC のクラス平均を計算する。
// yTrue はクラス番号、proba は n×nClasses の確率行列。
func MacroAUC(yTrue *mat.VecDense, proba mat.Matrix) (float64, error) {
	if yTrue == nil || yTrue.Len() == 0 || proba == nil {
		return 0, errors.NewValueError("MacroAUC", "empty input")
	}
	n := yTrue.Len()
	rows, nClasses := proba.Dims()
	if rows != n {
		return 0, errors.NewDimensionError("MacroAUC", n, rows, 0)
	}

	var sum float64
	binary := mat.NewVecDense(n, nil)
	score := mat.NewVecDense(n, nil)
	for k := 0; k < nClasses; k++ {
		for i := 0; i < n; i++ {
			t := yTrue.AtVec(i)
			if !isClassCode(t, nClasses) {
				return 0, errors.NewValueError("MacroAUC", "labels must be class codes in [0, nClasses)")
			}
			v := 0.0
			if int(t) == k {
				v = 1
			}
			binary.SetVec(i, v)
			score.SetVec(i, proba.At(i, k))
		}
		auc, err := AUC(binary, score)
		if err != nil {
			return 0, errors.Wrapf(err, "MacroAUC: class %d", k)
		}
		sum += auc
	}
	return sum / float64(nClasses), nil
}
