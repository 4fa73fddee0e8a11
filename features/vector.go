package features

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Feature indexes a Vector. The order is the order the classifier was
// trained on and must not change.
type Feature int

const (
	NbWWW Feature = iota
	NbHyperlinks
	PhishHintsCount
	IP
	LengthWordsRaw
	LongestWordPath
	RatioDigitsHost
	DomainInTitle
	NbDots
	NbHyphens
	NbQm
	DomainAge
	NbUnderscore
	NbSlash
	NbEq
	RatioExtHyperlinks
	RatioDigitsURL
	NbSpace
	LongestWordsRaw
	LengthHostname

	NumFeatures = int(LengthHostname) + 1
)

var Names = [NumFeatures]string{
	"nb_www",
	"nb_hyperlinks",
	"phish_hints",
	"ip",
	"length_words_raw",
	"longest_word_path",
	"ratio_digits_host",
	"domain_in_title",
	"nb_dots",
	"nb_hyphens",
	"nb_qm",
	"domain_age",
	"nb_underscore",
	"nb_slash",
	"nb_eq",
	"ratio_extHyperlinks",
	"ratio_digits_url",
	"nb_space",
	"longest_words_raw",
	"length_hostname",
}

func (f Feature) String() string {
	if f < 0 || int(f) >= NumFeatures {
		return "unknown"
	}
	return Names[f]
}

// Value is the output of a single extractor: a number, a boolean or
// nothing at all.
type Value struct {
	v  float64
	ok bool
}

var Absent = Value{}

func Bool(b bool) Value {
	if b {
		return Value{1, true}
	}
	return Value{0, true}
}

func Int(n int) Value {
	return Value{float64(n), true}
}

func Float(f float64) Value {
	return Value{f, true}
}

func (v Value) Available() bool {
	return v.ok
}

// coerce turns an extractor value into a vector field; absent values are 0.
func coerce(v Value) float64 {
	if !v.ok {
		return 0
	}
	return v.v
}

// ageValue maps a domain age outcome to its field value. Failed lookups and
// missing or unparseable dates are 1, failed date arithmetic is -1.
func ageValue(a Age) Value {
	switch a.Status {
	case AgeComputed:
		return Int(a.Days)
	case AgeArithmeticFailed:
		return Int(-1)
	}
	return Int(1)
}

type Vector [NumFeatures]float64

func (v Vector) Get(f Feature) float64 {
	return v[f]
}

func (v Vector) Slice() []float64 {
	s := make([]float64, NumFeatures)
	copy(s, v[:])
	return s
}

// MarshalJSON encodes the vector as an object keyed by feature name, in
// vector order.
func (v Vector) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range Names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(name)
		buf.Write(k)
		buf.WriteByte(':')
		val, err := json.Marshal(v[i])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object holding exactly the feature names.
func (v *Vector) UnmarshalJSON(b []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	var res Vector
	for i, name := range Names {
		val, ok := m[name]
		if !ok {
			return fmt.Errorf("missing feature %q", name)
		}
		res[i] = val
	}
	if len(m) != NumFeatures {
		return fmt.Errorf("expected %d features, but got %d", NumFeatures, len(m))
	}
	*v = res
	return nil
}

// Assemble merges the extractor outputs into a vector.
func Assemble(lex Lexical, net Network, age Age) Vector {
	var v Vector
	set := func(f Feature, val Value) {
		v[f] = coerce(val)
	}

	set(NbWWW, Int(lex.NbWWW))
	set(NbHyperlinks, net.Hyperlinks)
	set(PhishHintsCount, Int(lex.PhishHints))
	set(IP, Bool(lex.IP))
	set(LengthWordsRaw, Int(lex.LengthWordsRaw))
	set(LongestWordPath, Int(lex.LongestWordPath))
	set(RatioDigitsHost, Float(lex.RatioDigitsHost))
	set(DomainInTitle, net.DomainInTitle)
	set(NbDots, Int(lex.NbDots))
	set(NbHyphens, Int(lex.NbHyphens))
	set(NbQm, Int(lex.NbQm))
	set(DomainAge, ageValue(age))
	set(NbUnderscore, Int(lex.NbUnderscore))
	set(NbSlash, Int(lex.NbSlash))
	set(NbEq, Int(lex.NbEq))
	set(RatioExtHyperlinks, net.ExtHyperlinkRatio)
	set(RatioDigitsURL, Float(lex.RatioDigitsURL))
	set(NbSpace, Int(lex.NbSpace))
	set(LongestWordsRaw, Int(lex.LongestWordsRaw))
	set(LengthHostname, Int(lex.LengthHostname))
	return v
}
