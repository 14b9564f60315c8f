package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/smartfarm-iot/irrigation-server/internal/model"
)

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Store owns the relational collections: forecasts, schedule slots and the
// decision audit trail.
type Store struct {
	db *gorm.DB
}

func NewStore(cfg PostgresConfig) (*Store, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get DB instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an already-open gorm handle.
func NewStoreWithDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&ForecastRow{}, &ScheduleSlotRow{}, &DecisionRow{})
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) SaveForecast(ctx context.Context, f model.ForecastRecord) error {
	row := ForecastRow{
		EffectiveAt:     f.EffectiveAt,
		RainProbability: f.RainProbability,
		Reason:          f.Reason,
		ShouldIrrigate:  f.ShouldIrrigate,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// ReplaceSlots applies a merged plan in one transaction: every stored slot
// whose dateKey is in the incoming batch is deleted, then the new rows and
// the decision audit entries go in. Either the whole replace lands or none
// of it does; callers must not publish projections unless this returns nil.
func (s *Store) ReplaceSlots(ctx context.Context, dates []string, slots []model.ScheduleSlot, decisions []model.DecisionRecord) error {
	if len(dates) == 0 {
		return nil
	}

	slotRows := make([]ScheduleSlotRow, 0, len(slots))
	for _, sl := range slots {
		slotRows = append(slotRows, slotRowFrom(sl))
	}
	decRows := make([]DecisionRow, 0, len(decisions))
	for _, d := range decisions {
		decRows = append(decRows, DecisionRow{
			DecidedAt: d.DecidedAt,
			Irrigate:  d.Irrigate,
			Reason:    d.Reason,
		})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("date_key IN ?", dates).Delete(&ScheduleSlotRow{}).Error; err != nil {
			return fmt.Errorf("delete slots for %v: %w", dates, err)
		}
		if len(slotRows) > 0 {
			if err := tx.Create(&slotRows).Error; err != nil {
				return fmt.Errorf("insert slots: %w", err)
			}
		}
		if len(decRows) > 0 {
			if err := tx.Create(&decRows).Error; err != nil {
				return fmt.Errorf("insert decision records: %w", err)
			}
		}
		return nil
	})
}

// SlotsForDate returns the stored slots for one dateKey ordered by start
// time; order here is the stable tie-break order for the query layer.
func (s *Store) SlotsForDate(ctx context.Context, dateKey string) ([]model.ScheduleSlot, error) {
	var rows []ScheduleSlotRow
	err := s.db.WithContext(ctx).
		Where("date_key = ?", dateKey).
		Order("start_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]model.ScheduleSlot, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *Store) RecentDecisions(ctx context.Context, limit int) ([]model.DecisionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []DecisionRow
	err := s.db.WithContext(ctx).
		Order("decided_at desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]model.DecisionRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.DecisionRecord{
			DecidedAt: r.DecidedAt,
			Irrigate:  r.Irrigate,
			Reason:    r.Reason,
		})
	}
	return out, nil
}
