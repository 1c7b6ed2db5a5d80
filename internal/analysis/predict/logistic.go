// Package predict estimates the probability that the next bar closes higher,
// using a deliberately small logistic regression trained by gradient descent
// on a handful of per-bar features. It is a companion heuristic to the signal
// engine, not a statistical inference library.
package predict

import (
	"fmt"
	"math"
)

const (
	defaultLearningRate = 0.1
	defaultEpochs       = 2000

	// minSamples is the smallest training set worth fitting.
	minSamples = 30
)

// Model holds the fitted weights, bias first.
type Model struct {
	Beta []float64
}

// TrainOptions tunes the gradient descent; zero values pick the defaults.
type TrainOptions struct {
	LearningRate float64
	Epochs       int
}

// Train fits a logistic regression on X (rows of features) against binary
// labels y. Rows containing undefined values must be filtered beforehand.
func Train(X [][]float64, y []float64, opts TrainOptions) (*Model, error) {
	if len(X) != len(y) {
		return nil, fmt.Errorf("predict: %d feature rows but %d labels", len(X), len(y))
	}
	if len(X) < minSamples {
		return nil, fmt.Errorf("predict: need at least %d samples, got %d", minSamples, len(X))
	}
	nFeat := len(X[0])
	for i, row := range X {
		if len(row) != nFeat {
			return nil, fmt.Errorf("predict: row %d has %d features, want %d", i, len(row), nFeat)
		}
	}
	lr := opts.LearningRate
	if lr <= 0 {
		lr = defaultLearningRate
	}
	epochs := opts.Epochs
	if epochs <= 0 {
		epochs = defaultEpochs
	}

	beta := make([]float64, nFeat+1)
	grad := make([]float64, nFeat+1)
	nSamples := float64(len(X))
	for e := 0; e < epochs; e++ {
		for j := range grad {
			grad[j] = 0
		}
		for i, row := range X {
			p := sigmoid(dot(beta, row))
			err := p - y[i]
			grad[0] += err
			for j, f := range row {
				grad[j+1] += err * f
			}
		}
		for j := range beta {
			beta[j] -= lr * grad[j] / nSamples
		}
	}
	return &Model{Beta: beta}, nil
}

// Predict returns the probability of the positive class for one feature row.
func (m *Model) Predict(features []float64) (float64, error) {
	if len(features)+1 != len(m.Beta) {
		return 0, fmt.Errorf("predict: %d features but model has %d weights", len(features), len(m.Beta))
	}
	return sigmoid(dot(m.Beta, features)), nil
}

func dot(beta, features []float64) float64 {
	z := beta[0]
	for j, f := range features {
		z += beta[j+1] * f
	}
	return z
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
