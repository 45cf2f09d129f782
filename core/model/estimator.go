// Package model provides the estimator interfaces, fitted-state management
// and gob persistence shared by the classifiers.
package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Classifier は確率予測を持つ分類器のインターフェース
type Classifier interface {
	Fitter
	Predictor

	// PredictProba はクラスごとの確率 (n_samples x n_classes) を返す
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Score は正解率を返す
	Score(X, y mat.Matrix) float64
}

// ImportanceReporter は特徴量重要度を公開するモデルのインターフェース
type ImportanceReporter interface {
	// GetFeatureImportances は合計1に正規化された不純度減少量を返す
	GetFeatureImportances() []float64
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	// SetParams sets the model's hyperparameters.
	SetParams(params map[string]interface{}) error
}
