package store

import (
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"

	"github.com/Tezha3/phishing-url-detection/testing"
)

// OpenStore opens a store on an emptied database, for integration tests.
func OpenStore(conf Config) (*Store, *gorm.DB, error) {
	g, err := conf.Open()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open gorm database")
	}

	if err := testing.ResetDb(g); err != nil {
		return nil, nil, errors.Wrap(err, "failed to reset database")
	}

	return NewStoreWithDB(g), g, nil
}
