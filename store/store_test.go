package store

import (
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"

	"github.com/Tezha3/phishing-url-detection/store/models"
	tst "github.com/Tezha3/phishing-url-detection/testing"
)

func mockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock database: %s", err)
	}
	g, err := gorm.Open("postgres", db)
	if err != nil {
		t.Fatalf("failed to open gorm database: %s", err)
	}
	return NewStoreWithDB(g), mock
}

func TestStoreVerdict(t *testing.T) {
	tests := []struct {
		name      string
		insertErr error
	}{
		{"insert succeeds", nil},
		{"insert fails", errors.New("connection reset")},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s, mock := mockStore(t)

			mock.ExpectBegin()
			qry := mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "verdicts"`))
			if test.insertErr != nil {
				qry.WillReturnError(test.insertErr)
				mock.ExpectRollback()
			} else {
				qry.WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
				mock.ExpectCommit()
			}

			v := &models.Verdict{
				RequestID:  "2f1e0b7e-9a52-4d1e-8f57-0c6b1c3a9d10",
				URL:        "http://bank-login.example.com",
				Label:      "Phishing",
				Confidence: 91.5,
				Features:   `{"nb_www":0}`,
			}
			err := s.StoreVerdict(v)
			if test.insertErr != nil {
				if err == nil {
					t.Fatalf("expected an error, but got none")
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %s", err)
				}
				if v.ID != 7 {
					t.Fatalf("expected id %d, but got %d", 7, v.ID)
				}
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %s", err)
			}
		})
	}
}

func TestRun(t *testing.T) {
	s, mock := mockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "runs"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "verdicts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "runs" SET "end_time"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ruid, err := s.StartRun("batch", "localhost")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if ruid == "" {
		t.Fatalf("expected a run identifier")
	}
	if _, err := s.StartRun("batch", "localhost"); err != ActiveRunErr {
		t.Fatalf("expected error '%v', but got '%v'", ActiveRunErr, err)
	}

	v := &models.Verdict{URL: "http://example.com", Label: "Legitimate"}
	if err := s.StoreVerdict(v); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if v.RunID != 3 {
		t.Fatalf("expected run id %d, but got %d", 3, v.RunID)
	}

	if err := s.StopRun(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := s.StopRun(); err != NoActiveRunErr {
		t.Fatalf("expected error '%v', but got '%v'", NoActiveRunErr, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %s", err)
	}
}

func TestVerdictsForURL(t *testing.T) {
	s, mock := mockStore(t)

	rows := sqlmock.NewRows([]string{"id", "url", "label", "confidence"}).
		AddRow(2, "http://example.com", "Legitimate", 80.0).
		AddRow(1, "http://example.com", "Phishing", 55.0)
	mock.ExpectQuery(`SELECT \* FROM "verdicts"\s+WHERE \(url = \$1\)\s+ORDER BY created_at desc\s+LIMIT 2`).
		WithArgs("http://example.com").
		WillReturnRows(rows)

	verdicts, err := s.VerdictsForURL("http://example.com", 2)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(verdicts) != 2 {
		t.Fatalf("expected %d verdicts, but got %d", 2, len(verdicts))
	}
	if verdicts[0].Label != "Legitimate" {
		t.Fatalf("expected label '%s', but got '%s'", "Legitimate", verdicts[0].Label)
	}
}

func TestMigrateFailureClosesDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock database: %s", err)
	}
	g, err := gorm.Open("postgres", db)
	if err != nil {
		t.Fatalf("failed to open gorm database: %s", err)
	}

	mock.ExpectExec(`CREATE TABLE "runs"`).WillReturnError(errors.New("permission denied"))
	mock.ExpectClose()

	s, err := newMigratedStore(g)
	if err == nil {
		t.Fatalf("expected an error, but got none")
	}
	if s != nil {
		t.Fatalf("expected no store, but got %v", s)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected database to be closed: %s", err)
	}
}

func TestConfigIsValid(t *testing.T) {
	tests := []struct {
		name  string
		conf  Config
		valid bool
	}{
		{"disabled", Config{}, true},
		{"complete", Config{Enabled: true, Host: "localhost", Port: 5432, DBName: "phishing"}, true},
		{"missing host", Config{Enabled: true, Port: 5432, DBName: "phishing"}, false},
		{"missing port", Config{Enabled: true, Host: "localhost", DBName: "phishing"}, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.conf.IsValid()
			if (err == nil) != test.valid {
				t.Fatalf("expected valid to be %t, but got error '%v'", test.valid, err)
			}
		})
	}
}

func TestStoreIntegration(t *testing.T) {
	tst.SkipCI(t)
	pass := tst.RequireEnv(t, "STORE_PASS")

	conf := Config{
		Enabled:  true,
		User:     "postgres",
		Password: pass,
		Host:     "localhost",
		Port:     5432,
		DBName:   "phishing_test",
	}
	s, _, err := OpenStore(conf)
	if err != nil {
		t.Fatalf("failed to open store: %s", err)
	}
	defer s.Close()

	for _, label := range []string{"Phishing", "Legitimate"} {
		if err := s.StoreVerdict(&models.Verdict{URL: "http://example.com", Label: label}); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
	}
	verdicts, err := s.VerdictsForURL("http://example.com", 0)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(verdicts) != 2 {
		t.Fatalf("expected %d verdicts, but got %d", 2, len(verdicts))
	}
}
