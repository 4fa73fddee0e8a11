package app

import (
	"strings"
)

type ConfigErr struct {
	errs []string
}

func (ce *ConfigErr) Add(s string) {
	ce.errs = append(ce.errs, s)
}

// Merge adds the problems of another config error, ignoring anything else.
func (ce *ConfigErr) Merge(err error) {
	if other, ok := err.(*ConfigErr); ok {
		ce.errs = append(ce.errs, other.errs...)
		return
	}
	if err != nil {
		ce.Add(err.Error())
	}
}

func (ce *ConfigErr) Error() string {
	return "config err: " + strings.Join(ce.errs, ",")
}

func (ce *ConfigErr) IsError() bool {
	return len(ce.errs) > 0
}

func NewConfigErr() ConfigErr {
	return ConfigErr{
		errs: []string{},
	}
}
