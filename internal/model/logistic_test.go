package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"titanic/internal/transform"
)

func toyData() (*mat.Dense, []float64) {
	X := mat.NewDense(8, 2, []float64{
		-2, 0.5,
		-1.5, -0.3,
		-1, 0.1,
		-0.5, 1.0,
		0.5, -1.0,
		1, 0.2,
		1.5, -0.4,
		2, 0.3,
	})
	return X, []float64{0, 0, 0, 1, 0, 1, 1, 1}
}

func TestNewLogisticRegression_Validates(t *testing.T) {
	for _, c := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := NewLogisticRegression(c, 10)
		assert.ErrorIs(t, err, transform.ErrInvalidArgument, "C=%v", c)
	}
	_, err := NewLogisticRegression(1, -1)
	assert.ErrorIs(t, err, transform.ErrInvalidArgument)

	m, err := NewLogisticRegression(0.5, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxIterations, m.MaxIterations)
}

func TestObjective_GradientMatchesFiniteDifference(t *testing.T) {
	X, y := toyData()
	s := make([]float64, len(y))
	for i, v := range y {
		s[i] = 2*v - 1
	}
	obj := objective{X: X, s: s, c: 0.7}
	at := []float64{0.3, -0.2, 0.1}

	got := make([]float64, len(at))
	obj.gradient(got, at)
	want := fd.Gradient(nil, obj.value, at, &fd.Settings{Formula: fd.Central})
	assert.InDeltaSlice(t, want, got, 1e-6)
}

func TestLogisticRegression_FitPredict(t *testing.T) {
	X, y := toyData()
	m, err := NewLogisticRegression(10, 200)
	require.NoError(t, err)
	require.NoError(t, m.Fit(X, y))

	assert.Greater(t, m.Coef()[0], 0.0)

	proba, err := m.PredictProba(X)
	require.NoError(t, err)
	for i, p := range proba {
		assert.True(t, p > 0 && p < 1, "row %d proba %v", i, p)
	}
	assert.Less(t, proba[0], proba[7])

	pred, err := m.Predict(mat.NewDense(2, 2, []float64{-3, 0, 3, 0}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, pred)
}

func TestLogisticRegression_StrongerPenaltyShrinks(t *testing.T) {
	X, y := toyData()
	weak, _ := NewLogisticRegression(10, 200)
	strong, _ := NewLogisticRegression(0.01, 200)
	require.NoError(t, weak.Fit(X, y))
	require.NoError(t, strong.Fit(X, y))

	assert.Less(t, math.Abs(strong.Coef()[0]), math.Abs(weak.Coef()[0]))
}

func TestLogisticRegression_Errors(t *testing.T) {
	X, y := toyData()
	m, _ := NewLogisticRegression(1, 50)

	_, err := m.PredictProba(X)
	assert.ErrorIs(t, err, transform.ErrNotFitted)

	assert.ErrorIs(t, m.Fit(X, y[:3]), ErrDimension)
	assert.ErrorIs(t, m.Fit(X, []float64{0, 0, 0, 0, 0, 0, 0, 2}), ErrLabels)
	assert.ErrorIs(t, m.Fit(X, make([]float64, 8)), ErrSingleClass)

	require.NoError(t, m.Fit(X, y))
	_, err = m.Predict(mat.NewDense(1, 3, nil))
	assert.ErrorIs(t, err, ErrDimension)
}
