// Package model implements the survival classifier at the end of the pipeline.
package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"titanic/internal/logging"
	"titanic/internal/transform"
)

var (
	ErrDimension   = errors.New("model: dimension mismatch")
	ErrLabels      = errors.New("model: labels must be 0 or 1")
	ErrSingleClass = errors.New("model: training labels contain a single class")
)

// DefaultMaxIterations bounds the solver when no limit is configured.
const DefaultMaxIterations = 100

// LogisticRegression is a binary L2-regularised logistic regression. C is the
// inverse regularisation strength; the intercept is not penalised. Fitting
// minimises
//
//	0.5*||w||^2 + C * sum_i log(1 + exp(-s_i * (x_i.w + b)))
//
// with s_i = 2*y_i - 1, using L-BFGS.
type LogisticRegression struct {
	C             float64
	MaxIterations int

	coef      []float64
	intercept float64
}

func NewLogisticRegression(c float64, maxIterations int) (*LogisticRegression, error) {
	if !(c > 0) || math.IsInf(c, 0) {
		return nil, fmt.Errorf("logit: %w: C must be a positive number, got %v", transform.ErrInvalidArgument, c)
	}
	if maxIterations < 0 {
		return nil, fmt.Errorf("logit: %w: max_iterations %d is negative", transform.ErrInvalidArgument, maxIterations)
	}
	if maxIterations == 0 {
		maxIterations = DefaultMaxIterations
	}
	return &LogisticRegression{C: c, MaxIterations: maxIterations}, nil
}

func (m *LogisticRegression) Fit(X *mat.Dense, y []float64) error {
	rows, cols := X.Dims()
	if rows != len(y) {
		return fmt.Errorf("%w: %d rows, %d labels", ErrDimension, rows, len(y))
	}
	signs := make([]float64, len(y))
	var pos int
	for i, v := range y {
		switch v {
		case 0:
			signs[i] = -1
		case 1:
			signs[i] = 1
			pos++
		default:
			return fmt.Errorf("%w: row %d is %v", ErrLabels, i, v)
		}
	}
	if pos == 0 || pos == len(y) {
		return ErrSingleClass
	}

	obj := objective{X: X, s: signs, c: m.C}
	problem := optimize.Problem{Func: obj.value, Grad: obj.gradient}
	settings := &optimize.Settings{
		MajorIterations:   m.MaxIterations,
		GradientThreshold: 1e-6,
	}
	res, err := optimize.Minimize(problem, make([]float64, cols+1), settings, &optimize.LBFGS{})
	log := logging.With("model")
	if err != nil {
		if res == nil || res.MajorIterations == 0 {
			return fmt.Errorf("logit: solver: %w", err)
		}
		log.Warn("logit: solver stopped early", "err", err, "iterations", res.MajorIterations)
	} else if res.Status.Early() {
		log.Warn("logit: solver did not converge", "status", res.Status.String(), "iterations", res.MajorIterations)
	}
	log.Debug("logit: fitted", "status", res.Status.String(), "iterations", res.MajorIterations, "loss", res.F)

	m.coef = append([]float64(nil), res.X[:cols]...)
	m.intercept = res.X[cols]
	return nil
}

// Coef returns the fitted feature weights.
func (m *LogisticRegression) Coef() []float64 { return append([]float64(nil), m.coef...) }

func (m *LogisticRegression) Intercept() float64 { return m.intercept }

func (m *LogisticRegression) PredictProba(X *mat.Dense) ([]float64, error) {
	if m.coef == nil {
		return nil, transform.ErrNotFitted
	}
	rows, cols := X.Dims()
	if cols != len(m.coef) {
		return nil, fmt.Errorf("%w: %d features, model has %d", ErrDimension, cols, len(m.coef))
	}
	z := mat.NewVecDense(rows, nil)
	z.MulVec(X, mat.NewVecDense(cols, m.coef))
	out := make([]float64, rows)
	for i := range out {
		out[i] = sigmoid(z.AtVec(i) + m.intercept)
	}
	return out, nil
}

// Predict labels rows with probability of at least 0.5 as survivors.
func (m *LogisticRegression) Predict(X *mat.Dense) ([]float64, error) {
	proba, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	for i, p := range proba {
		if p >= 0.5 {
			proba[i] = 1
		} else {
			proba[i] = 0
		}
	}
	return proba, nil
}

type objective struct {
	X *mat.Dense
	s []float64
	c float64
}

func (o objective) margins(x []float64) *mat.VecDense {
	rows, cols := o.X.Dims()
	z := mat.NewVecDense(rows, nil)
	z.MulVec(o.X, mat.NewVecDense(cols, x[:cols]))
	return z
}

func (o objective) value(x []float64) float64 {
	_, cols := o.X.Dims()
	w, b := x[:cols], x[cols]
	z := o.margins(x)
	var loss float64
	for i, s := range o.s {
		loss += log1pExp(-s * (z.AtVec(i) + b))
	}
	var norm float64
	for _, v := range w {
		norm += v * v
	}
	return 0.5*norm + o.c*loss
}

func (o objective) gradient(grad, x []float64) {
	_, cols := o.X.Dims()
	w, b := x[:cols], x[cols]
	z := o.margins(x)
	g := mat.NewVecDense(len(o.s), nil)
	var gb float64
	for i, s := range o.s {
		d := -o.c * s * sigmoid(-s*(z.AtVec(i)+b))
		g.SetVec(i, d)
		gb += d
	}
	gw := mat.NewVecDense(cols, grad[:cols])
	gw.MulVec(o.X.T(), g)
	for j, v := range w {
		grad[j] += v
	}
	grad[cols] = gb
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// log1pExp computes log(1 + exp(t)) without overflow.
func log1pExp(t float64) float64 {
	if t > 0 {
		return t + math.Log1p(math.Exp(-t))
	}
	return math.Log1p(math.Exp(t))
}
