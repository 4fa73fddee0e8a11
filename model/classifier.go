package model

import (
	"fmt"

	"github.com/Tezha3/phishing-url-detection/features"
)

const (
	Legitimate = 0
	Phishing   = 1
)

// Prediction is the class predicted for a feature vector, together with the
// probability of every class.
type Prediction struct {
	Class         int
	Probabilities []float64
}

// Probability returns the probability of the predicted class.
func (p Prediction) Probability() float64 {
	if p.Class < 0 || p.Class >= len(p.Probabilities) {
		return 0
	}
	return p.Probabilities[p.Class]
}

// Classifier scores feature vectors. Implementations must be safe for
// concurrent use and return identical predictions for identical vectors.
type Classifier interface {
	Predict(v features.Vector) (Prediction, error)
}

type ClassifierFunc func(v features.Vector) (Prediction, error)

func (f ClassifierFunc) Predict(v features.Vector) (Prediction, error) {
	return f(v)
}

type LoadErr struct {
	Path string
	Err  error
}

func (err LoadErr) Error() string {
	return fmt.Sprintf("failed to load model (%s): %s", err.Path, err.Err)
}

func (err LoadErr) Cause() error {
	return err.Err
}
