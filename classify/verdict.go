package classify

import (
	"fmt"

	"github.com/Tezha3/phishing-url-detection/model"
)

const (
	LabelLegitimate = "Legitimate"
	LabelPhishing   = "Phishing"
)

type InconsistentClassErr struct {
	Class int
}

func (err InconsistentClassErr) Error() string {
	return fmt.Sprintf("classifier returned unknown class %d", err.Class)
}

// FormatVerdict maps a prediction to its label and the confidence in that
// label, as a percentage.
func FormatVerdict(pred model.Prediction) (string, float64, error) {
	var label string
	switch pred.Class {
	case model.Legitimate:
		label = LabelLegitimate
	case model.Phishing:
		label = LabelPhishing
	default:
		return "", 0, InconsistentClassErr{pred.Class}
	}
	if pred.Class >= len(pred.Probabilities) {
		return "", 0, InconsistentClassErr{pred.Class}
	}
	return label, pred.Probability() * 100, nil
}
