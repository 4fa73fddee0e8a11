package testing

import (
	"fmt"
	"os"
	"testing"

	"github.com/Tezha3/phishing-url-detection/store/models"
	"github.com/jinzhu/gorm"
)

func SkipCI(t *testing.T) {
	if os.Getenv("CI") != "" {
		t.Skip("Skipping testing in CI environment")
	}
}

// RequireEnv returns the value of an environment variable, and skips the
// test when it is not set.
func RequireEnv(t *testing.T, key string) string {
	v := os.Getenv(key)
	if v == "" {
		t.Skipf("Skipping test, %s is not set", key)
	}
	return v
}

func ResetDb(g *gorm.DB) error {
	tables := []string{
		"verdicts",
		"runs",
	}

	for _, table := range tables {
		qry := fmt.Sprintf("DROP TABLE IF EXISTS %s", table)
		if err := g.Exec(qry).Error; err != nil {
			return err
		}
	}

	migrateExamples := []interface{}{
		&models.Run{},
		&models.Verdict{},
	}
	for _, ex := range migrateExamples {
		if err := g.AutoMigrate(ex).Error; err != nil {
			return err
		}
	}
	return nil
}
