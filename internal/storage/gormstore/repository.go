package gormstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/radiograb/internal/config"
	"github.com/radiograb/internal/models"
	"github.com/radiograb/internal/storage"
)

// Repository implements storage.Repository on top of gorm
type Repository struct {
	db *gorm.DB
}

// New opens the database named by cfg and returns a repository over it
func New(cfg config.DatabaseConfig) (*Repository, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite", "":
		if err := ensureDir(cfg.DSN); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Driver == "sqlite" || cfg.Driver == "" {
		// SQLite serializes writers; one connection also keeps :memory: databases shared
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return &Repository{db: db}, nil
}

func ensureDir(dsn string) error {
	if dsn == "" || strings.HasPrefix(dsn, ":memory:") || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return nil
}

// Migrate runs database migrations
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(
		&models.Station{},
		&models.Show{},
	)
}

// Close closes the database connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Station operations

func (r *Repository) CreateStation(ctx context.Context, station *models.Station) error {
	if station.Status == "" {
		station.Status = models.StationStatusActive
	}
	return r.db.WithContext(ctx).Create(station).Error
}

func (r *Repository) GetStationByID(ctx context.Context, id uint) (*models.Station, error) {
	var station models.Station
	if err := r.db.WithContext(ctx).First(&station, id).Error; err != nil {
		return nil, translate(err)
	}
	return &station, nil
}

func (r *Repository) ListStations(ctx context.Context, filter storage.StationFilter) ([]*models.Station, error) {
	var stations []*models.Station
	query := r.db.WithContext(ctx).Model(&models.Station{})
	if filter.ActiveOnly {
		query = query.Where("status = ?", models.StationStatusActive)
	}
	if err := query.Order("name ASC").Find(&stations).Error; err != nil {
		return nil, err
	}
	return stations, nil
}

// Show operations

func (r *Repository) CreateShow(ctx context.Context, show *models.Show) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(show).Error
	return translate(err)
}

func (r *Repository) GetShowByID(ctx context.Context, id uint) (*models.Show, error) {
	var show models.Show
	if err := r.db.WithContext(ctx).Preload("Station").First(&show, id).Error; err != nil {
		return nil, translate(err)
	}
	return &show, nil
}

func (r *Repository) FindShowByStationAndName(ctx context.Context, stationID uint, name string, excludeID uint) (*models.Show, error) {
	var show models.Show
	query := r.db.WithContext(ctx).Where("station_id = ? AND name = ?", stationID, name)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.First(&show).Error; err != nil {
		return nil, translate(err)
	}
	return &show, nil
}

func (r *Repository) ListShows(ctx context.Context, filter storage.ShowFilter) ([]*models.Show, error) {
	var shows []*models.Show
	query := r.db.WithContext(ctx).Model(&models.Show{}).Preload("Station")

	if filter.StationID != nil {
		query = query.Where("station_id = ?", *filter.StationID)
	}
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}

	query = query.Order("name ASC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&shows).Error; err != nil {
		return nil, err
	}
	return shows, nil
}

func (r *Repository) UpdateShow(ctx context.Context, show *models.Show) error {
	if show.ID == 0 {
		return fmt.Errorf("update show: %w", storage.ErrNotFound)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Select("*") writes zero values too: the edit path replaces the whole record
		res := tx.Model(&models.Show{ID: show.ID}).
			Select("*").
			Omit("id", "created_at", clause.Associations).
			Updates(show)
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}

// translate maps driver errors onto the storage sentinels
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return storage.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return fmt.Errorf("%w: %v", storage.ErrDuplicateShow, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value")
}

// Ensure Repository implements storage.Repository
var _ storage.Repository = (*Repository)(nil)
