// Package store opens the configured database and builds every repository
// on top of it.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/Magget135/Minimal-Quest-Log/internal/category"
	"github.com/Magget135/Minimal-Quest-Log/internal/config"
	"github.com/Magget135/Minimal-Quest-Log/internal/logger"
	"github.com/Magget135/Minimal-Quest-Log/internal/quest"
	"github.com/Magget135/Minimal-Quest-Log/internal/recurrence"
	"github.com/Magget135/Minimal-Quest-Log/internal/reward"
	"github.com/Magget135/Minimal-Quest-Log/internal/rulesdoc"
)

// Stores bundles the repositories of one backend.
type Stores struct {
	Quests     quest.Repo
	Completed  quest.CompletedRepo
	Rules      recurrence.Repo
	Rewards    reward.Repo
	Categories category.Repo
	RulesDoc   rulesdoc.Repo

	// DB is nil for the memory driver.
	DB *gorm.DB
}

// Open connects to cfg.Driver and migrates every table.
func Open(cfg config.StorageConfig, log *logger.Logger) (*Stores, error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("service", "store", "driver", cfg.Driver)

	switch cfg.Driver {
	case "memory":
		log.Info("store_opened")
		return Memory(), nil
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}

	db, err := openDB(cfg, log)
	if err != nil {
		return nil, err
	}
	s, err := FromDB(db)
	if err != nil {
		_ = closeDB(db)
		return nil, err
	}
	log.Info("store_opened", "dsn", cfg.DSN)
	return s, nil
}

// Memory keeps everything in process memory.
func Memory() *Stores {
	return &Stores{
		Quests:     quest.NewMemoryRepo(),
		Completed:  quest.NewMemoryCompletedRepo(),
		Rules:      recurrence.NewMemoryRepo(),
		Rewards:    reward.NewMemoryRepo(),
		Categories: category.NewMemoryRepo(),
		RulesDoc:   rulesdoc.NewMemoryRepo(),
	}
}

// FromDB builds the gorm repositories, migrating their tables.
func FromDB(db *gorm.DB) (*Stores, error) {
	quests, err := quest.NewGormRepo(db)
	if err != nil {
		return nil, err
	}
	completed, err := quest.NewGormCompletedRepo(db)
	if err != nil {
		return nil, err
	}
	rules, err := recurrence.NewGormRepo(db)
	if err != nil {
		return nil, err
	}
	rewards, err := reward.NewGormRepo(db)
	if err != nil {
		return nil, err
	}
	cats, err := category.NewGormRepo(db)
	if err != nil {
		return nil, err
	}
	doc, err := rulesdoc.NewGormRepo(db)
	if err != nil {
		return nil, err
	}
	return &Stores{
		Quests:     quests,
		Completed:  completed,
		Rules:      rules,
		Rewards:    rewards,
		Categories: cats,
		RulesDoc:   doc,
		DB:         db,
	}, nil
}

func openDB(cfg config.StorageConfig, log *logger.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger: gormLogger.New(gormWriter{log}, gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		if dir := filepath.Dir(cfg.DSN); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		dsn := cfg.DSN
		if !strings.Contains(dsn, "?") {
			dsn += "?_busy_timeout=5000&_journal_mode=WAL"
		}
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}
	if cfg.Driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Ping checks the database connection. It always succeeds in memory.
func (s *Stores) Ping(ctx context.Context) error {
	if s.DB == nil {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Stores) Close() error {
	if s.DB == nil {
		return nil
	}
	return closeDB(s.DB)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// gormWriter routes gorm's slow-query and error lines into the app logger.
type gormWriter struct {
	log *logger.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.SugaredLogger.Warnf(format, args...)
}
