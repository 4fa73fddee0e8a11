package model

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/Tezha3/phishing-url-detection/features"
)

var (
	UnsupportedBoosterErr   = errors.New("unsupported booster, expected gbtree")
	UnsupportedObjectiveErr = errors.New("unsupported objective, expected binary:logistic")
	NoTreesErr              = errors.New("model contains no trees")
)

type FeatureNamesErr struct {
	Expected []string
	Actual   []string
}

func (err FeatureNamesErr) Error() string {
	return fmt.Sprintf("feature names do not match: expected [%s], got [%s]",
		strings.Join(err.Expected, ","), strings.Join(err.Actual, ","))
}

type xgbModel struct {
	Learner struct {
		FeatureNames      []string   `json:"feature_names"`
		GradientBooster   xgbBooster `json:"gradient_booster"`
		LearnerModelParam struct {
			BaseScore  string `json:"base_score"`
			NumClass   string `json:"num_class"`
			NumFeature string `json:"num_feature"`
		} `json:"learner_model_param"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
	} `json:"learner"`
}

type xgbBooster struct {
	Name  string `json:"name"`
	Model struct {
		Trees []xgbTree `json:"trees"`
	} `json:"model"`
}

type xgbTree struct {
	LeftChildren    []int     `json:"left_children"`
	RightChildren   []int     `json:"right_children"`
	SplitIndices    []int     `json:"split_indices"`
	SplitConditions []float64 `json:"split_conditions"`
	DefaultLeft     flags     `json:"default_left"`
}

// flags accepts both the integer and the boolean encoding of default_left.
type flags []bool

func (f *flags) UnmarshalJSON(b []byte) error {
	var raw []interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	res := make(flags, len(raw))
	for i, v := range raw {
		switch t := v.(type) {
		case bool:
			res[i] = t
		case float64:
			res[i] = t != 0
		default:
			return fmt.Errorf("invalid default_left value: %v", v)
		}
	}
	*f = res
	return nil
}

type node struct {
	left, right int
	feature     int
	cond        float32
	defaultLeft bool
}

func (n node) isLeaf() bool {
	return n.left == -1
}

type tree []node

func (t tree) eval(x []float32) float32 {
	i := 0
	for !t[i].isLeaf() {
		n := t[i]
		v := x[n.feature]
		switch {
		case math.IsNaN(float64(v)):
			if n.defaultLeft {
				i = n.left
			} else {
				i = n.right
			}
		case v < n.cond:
			i = n.left
		default:
			i = n.right
		}
	}
	return t[i].cond
}

// Ensemble is a gradient boosted tree ensemble trained with the
// binary:logistic objective. It is never modified after loading.
type Ensemble struct {
	baseMargin float64
	trees      []tree
}

// Margin returns the raw, untransformed score of a vector.
func (e *Ensemble) Margin(v features.Vector) float64 {
	x := make([]float32, features.NumFeatures)
	for i, f := range v {
		x[i] = float32(f)
	}
	var sum float32
	for _, t := range e.trees {
		sum += t.eval(x)
	}
	return e.baseMargin + float64(sum)
}

func (e *Ensemble) Predict(v features.Vector) (Prediction, error) {
	p := sigmoid(e.Margin(v))
	class := Legitimate
	if p > 0.5 {
		class = Phishing
	}
	pred := Prediction{
		Class:         class,
		Probabilities: []float64{1 - p, p},
	}
	return pred, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// LoadXGBoost reads a model saved by XGBoost in its JSON format.
func LoadXGBoost(path string) (*Ensemble, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadErr{path, err}
	}
	defer f.Close()

	e, err := ReadXGBoost(f)
	if err != nil {
		return nil, LoadErr{path, err}
	}
	return e, nil
}

func ReadXGBoost(r io.Reader) (*Ensemble, error) {
	var m xgbModel
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, errors.Wrap(err, "decode model")
	}
	l := m.Learner

	if l.GradientBooster.Name != "gbtree" {
		return nil, UnsupportedBoosterErr
	}
	if l.Objective.Name != "binary:logistic" {
		return nil, UnsupportedObjectiveErr
	}
	if len(l.FeatureNames) > 0 {
		if err := checkFeatureNames(l.FeatureNames); err != nil {
			return nil, err
		}
	}
	numFeature, err := strconv.Atoi(l.LearnerModelParam.NumFeature)
	if err != nil {
		return nil, errors.Wrap(err, "parse num_feature")
	}
	if numFeature != features.NumFeatures {
		return nil, fmt.Errorf("model expects %d features, got %d", numFeature, features.NumFeatures)
	}

	baseScore, err := parseBaseScore(l.LearnerModelParam.BaseScore)
	if err != nil {
		return nil, err
	}
	if baseScore <= 0 || baseScore >= 1 {
		return nil, fmt.Errorf("base score out of range: %f", baseScore)
	}

	if len(l.GradientBooster.Model.Trees) == 0 {
		return nil, NoTreesErr
	}
	e := Ensemble{
		baseMargin: math.Log(baseScore / (1 - baseScore)),
	}
	for i, xt := range l.GradientBooster.Model.Trees {
		t, err := newTree(xt)
		if err != nil {
			return nil, errors.Wrapf(err, "tree %d", i)
		}
		e.trees = append(e.trees, t)
	}
	return &e, nil
}

func checkFeatureNames(names []string) error {
	ok := len(names) == features.NumFeatures
	for i := 0; ok && i < len(names); i++ {
		ok = names[i] == features.Names[i]
	}
	if !ok {
		return FeatureNamesErr{Expected: features.Names[:], Actual: names}
	}
	return nil
}

// parseBaseScore handles both "5E-1" and the bracketed "[5E-1]" encoding.
func parseBaseScore(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return 0.5, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrap(err, "parse base score")
	}
	return v, nil
}

func newTree(xt xgbTree) (tree, error) {
	n := len(xt.LeftChildren)
	if n == 0 {
		return nil, errors.New("empty tree")
	}
	if len(xt.RightChildren) != n || len(xt.SplitIndices) != n || len(xt.SplitConditions) != n {
		return nil, errors.New("inconsistent node arrays")
	}
	if len(xt.DefaultLeft) != 0 && len(xt.DefaultLeft) != n {
		return nil, errors.New("inconsistent default_left array")
	}

	t := make(tree, n)
	for i := 0; i < n; i++ {
		nd := node{
			left:    xt.LeftChildren[i],
			right:   xt.RightChildren[i],
			feature: xt.SplitIndices[i],
			cond:    float32(xt.SplitConditions[i]),
		}
		if len(xt.DefaultLeft) > 0 {
			nd.defaultLeft = xt.DefaultLeft[i]
		}
		if !nd.isLeaf() {
			// children always follow their parent, so evaluation terminates
			if nd.left <= i || nd.right <= i || nd.left >= n || nd.right >= n {
				return nil, fmt.Errorf("invalid children for node %d", i)
			}
			if nd.feature < 0 || nd.feature >= features.NumFeatures {
				return nil, fmt.Errorf("invalid split index %d for node %d", nd.feature, i)
			}
		}
		t[i] = nd
	}
	return t, nil
}
