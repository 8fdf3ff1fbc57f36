// Package pipeline chains the feature steps and the classifier into one
// survival model. Steps are fitted in order, each on the output of the one
// before; once fitted a Pipeline is read-only and safe for concurrent use.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"

	"titanic/internal/logging"
	"titanic/internal/table"
	"titanic/internal/telemetry"
	"titanic/internal/transform"
)

// Step is a named table transformer.
type Step struct {
	Name string
	transform.Transformer
}

type Pipeline struct {
	steps []Step

	estName string
	est     transform.Estimator

	features []string // estimator input columns, fixed at fit
	fitted   bool
}

// New returns an unfitted pipeline ending in est.
func New(estName string, est transform.Estimator, steps ...Step) *Pipeline {
	return &Pipeline{steps: steps, estName: estName, est: est}
}

// Steps lists step names in execution order, the estimator last.
func (p *Pipeline) Steps() []string {
	out := make([]string, 0, len(p.steps)+1)
	for _, s := range p.steps {
		out = append(out, s.Name)
	}
	return append(out, p.estName)
}

// Features returns the estimator's input columns.
func (p *Pipeline) Features() []string { return append([]string(nil), p.features...) }

func (p *Pipeline) Fit(df dataframe.DataFrame, y []float64) error {
	err := p.fit(df, y)
	if err != nil {
		telemetry.Fits.WithLabelValues("error").Inc()
		return err
	}
	telemetry.Fits.WithLabelValues("ok").Inc()
	return nil
}

func (p *Pipeline) fit(df dataframe.DataFrame, y []float64) error {
	if df.Err != nil {
		return df.Err
	}
	if len(y) != df.Nrow() {
		return fmt.Errorf("pipeline: %d rows but %d labels", df.Nrow(), len(y))
	}
	log := logging.With("pipeline")
	cur := df
	for _, s := range p.steps {
		start := time.Now()
		out, err := transform.FitTransform(s, cur, y)
		telemetry.ObserveStep(s.Name, "fit", start)
		if err != nil {
			return fmt.Errorf("step %s: %w", s.Name, err)
		}
		log.Debug("step fitted", "step", s.Name, "rows", out.Nrow(), "cols", out.Ncol())
		cur = out
	}

	names := cur.Names()
	X, err := table.Matrix(cur, names)
	if err != nil {
		return fmt.Errorf("step %s: %w", p.estName, err)
	}
	start := time.Now()
	err = p.est.Fit(X, y)
	telemetry.ObserveStep(p.estName, "fit", start)
	if err != nil {
		return fmt.Errorf("step %s: %w", p.estName, err)
	}
	p.features = names
	p.fitted = true
	log.Info("pipeline fitted", "rows", df.Nrow(), "features", len(names))
	return nil
}

// Transform runs every step but the estimator.
func (p *Pipeline) Transform(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if !p.fitted {
		return dataframe.DataFrame{}, transform.ErrNotFitted
	}
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}
	cur := df
	for _, s := range p.steps {
		start := time.Now()
		out, err := s.Transform(cur)
		telemetry.ObserveStep(s.Name, "transform", start)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("step %s: %w", s.Name, err)
		}
		cur = out
	}
	return cur, nil
}

func (p *Pipeline) PredictProba(df dataframe.DataFrame) ([]float64, error) {
	X, err := p.matrix(df)
	if err != nil {
		return nil, err
	}
	proba, err := p.est.PredictProba(X)
	if err != nil {
		return nil, fmt.Errorf("step %s: %w", p.estName, err)
	}
	return proba, nil
}

// Predict returns 0/1 survival predictions.
func (p *Pipeline) Predict(df dataframe.DataFrame) ([]float64, error) {
	X, err := p.matrix(df)
	if err != nil {
		return nil, err
	}
	pred, err := p.est.Predict(X)
	if err != nil {
		return nil, fmt.Errorf("step %s: %w", p.estName, err)
	}
	countPredictions(pred)
	return pred, nil
}

// Score returns probabilities and predictions from a single pass over the steps.
func (p *Pipeline) Score(df dataframe.DataFrame) (proba, pred []float64, err error) {
	X, err := p.matrix(df)
	if err != nil {
		return nil, nil, err
	}
	if proba, err = p.est.PredictProba(X); err != nil {
		return nil, nil, fmt.Errorf("step %s: %w", p.estName, err)
	}
	if pred, err = p.est.Predict(X); err != nil {
		return nil, nil, fmt.Errorf("step %s: %w", p.estName, err)
	}
	countPredictions(pred)
	return proba, pred, nil
}

func (p *Pipeline) matrix(df dataframe.DataFrame) (*mat.Dense, error) {
	out, err := p.Transform(df)
	if err != nil {
		return nil, err
	}
	X, err := table.Matrix(out, p.features)
	if err != nil {
		return nil, fmt.Errorf("step %s: %w", p.estName, err)
	}
	return X, nil
}

func countPredictions(pred []float64) {
	for _, v := range pred {
		telemetry.Predictions.WithLabelValues(telemetry.Class(v)).Inc()
	}
}

// ErrTarget is returned when the target column cannot be used as labels.
var ErrTarget = errors.New("pipeline: invalid target")
