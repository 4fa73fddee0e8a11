package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/Tezha3/phishing-url-detection/app"
	"github.com/Tezha3/phishing-url-detection/store/models"
)

var (
	ActiveRunErr   = errors.New("run already active, must be stopped first")
	NoActiveRunErr = errors.New("no run active")
)

type Config struct {
	Enabled  bool   `yaml:"enabled"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DBName   string `yaml:"dbname"`
	Debug    bool   `yaml:"debug"`

	d *gorm.DB
}

func (c *Config) Open() (*gorm.DB, error) {
	var err error
	if c.d == nil {
		c.d, err = gorm.Open("postgres", c.DSN())
	}
	return c.d, err
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.DBName)
}

func (c *Config) IsValid() error {
	if !c.Enabled {
		return nil
	}
	ce := app.NewConfigErr()
	if c.Host == "" {
		ce.Add("store host cannot be empty")
	}
	if c.Port <= 0 {
		ce.Add("store port must be positive")
	}
	if c.DBName == "" {
		ce.Add("store dbname cannot be empty")
	}
	if ce.IsError() {
		return &ce
	}
	return nil
}

// Store keeps the history of verdicts in a postgres database.
type Store struct {
	db     *gorm.DB
	m      *sync.Mutex
	curRun *models.Run
}

func (s *Store) Migrate() error {
	for _, m := range []interface{}{&models.Run{}, &models.Verdict{}} {
		if err := s.db.AutoMigrate(m).Error; err != nil {
			return errors.Wrap(err, "migrate")
		}
	}
	return nil
}

// StartRun starts a new run that subsequently stored verdicts belong to,
// and returns its identifier.
func (s *Store) StartRun(description, host string) (string, error) {
	s.m.Lock()
	defer s.m.Unlock()

	if s.curRun != nil {
		return "", ActiveRunErr
	}
	run := &models.Run{
		Ruid:        uuid.New().String(),
		Description: description,
		Host:        host,
		StartTime:   time.Now(),
	}
	if err := s.db.Create(run).Error; err != nil {
		return "", errors.Wrap(err, "insert run")
	}
	s.curRun = run
	log.Debug().Str("ruid", run.Ruid).Msgf("started run")
	return run.Ruid, nil
}

func (s *Store) StopRun() error {
	s.m.Lock()
	defer s.m.Unlock()

	if s.curRun == nil {
		return NoActiveRunErr
	}
	if err := s.db.Model(s.curRun).Update("end_time", time.Now()).Error; err != nil {
		return errors.Wrap(err, "update run")
	}
	s.curRun = nil
	return nil
}

func (s *Store) StoreVerdict(v *models.Verdict) error {
	s.m.Lock()
	if s.curRun != nil {
		v.RunID = s.curRun.ID
	}
	s.m.Unlock()

	if err := s.db.Create(v).Error; err != nil {
		return errors.Wrap(err, "insert verdict")
	}
	return nil
}

// VerdictsForURL returns the most recent verdicts for url, newest first.
func (s *Store) VerdictsForURL(url string, limit int) ([]models.Verdict, error) {
	var verdicts []models.Verdict
	qry := s.db.Where("url = ?", url).Order("created_at desc")
	if limit > 0 {
		qry = qry.Limit(limit)
	}
	if err := qry.Find(&verdicts).Error; err != nil {
		return nil, errors.Wrap(err, "select verdicts")
	}
	return verdicts, nil
}

func (s *Store) Close() error {
	if s.curRun != nil {
		if err := s.StopRun(); err != nil {
			log.Warn().Msgf("failed to stop run: %s", err)
		}
	}
	return s.db.Close()
}

// NewStoreWithDB wraps an open database, without migrating it.
func NewStoreWithDB(g *gorm.DB) *Store {
	return &Store{
		db: g,
		m:  &sync.Mutex{},
	}
}

func NewStore(conf Config) (*Store, error) {
	g, err := conf.Open()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open gorm database")
	}
	g.LogMode(conf.Debug)

	return newMigratedStore(g)
}

// newMigratedStore closes g when the schema cannot be migrated.
func newMigratedStore(g *gorm.DB) (*Store, error) {
	s := NewStoreWithDB(g)
	if err := s.Migrate(); err != nil {
		g.Close()
		return nil, err
	}
	return s, nil
}
