package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/atu-ZeRo1227/ohagoru-bot/services/reservation-bot/internal/domain"
)

// reservationRow is the table layout; participants are kept as a JSON column.
type reservationRow struct {
	ID           string   `gorm:"primaryKey"`
	Owner        string   `gorm:"index"`
	Level        string
	Date         string
	Time         string
	Puni         string
	Code         string
	Participants []string `gorm:"serializer:json"`
	MessageID    *string
}

func (reservationRow) TableName() string { return "reservations" }

func toRow(r *domain.Reservation) reservationRow {
	return reservationRow{
		ID: r.ID, Owner: r.Owner, Level: r.Level, Date: r.Date, Time: r.Time,
		Puni: r.Nickname, Code: r.Code, Participants: r.Participants, MessageID: r.MessageID,
	}
}

func (row reservationRow) toDomain() *domain.Reservation {
	p := row.Participants
	if p == nil {
		p = []string{}
	}
	return &domain.Reservation{
		ID: row.ID, Owner: row.Owner, Level: row.Level, Date: row.Date, Time: row.Time,
		Nickname: row.Puni, Code: row.Code, Participants: p, MessageID: row.MessageID,
	}
}

// GormStore keeps one row per reservation. Save still replaces the whole set.
type GormStore struct{ db *gorm.DB }

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&reservationRow{}); err != nil {
		return fmt.Errorf("migrate reservations: %w", err)
	}
	return nil
}

// Load returns connection errors; an unreachable database must not read as empty.
func (s *GormStore) Load(ctx context.Context) (domain.Store, error) {
	var rows []reservationRow
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	st := make(domain.Store, len(rows))
	for _, row := range rows {
		st.Put(row.toDomain())
	}
	return st, nil
}

func (s *GormStore) Save(ctx context.Context, st domain.Store) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]string, 0, len(st))
		for id := range st {
			ids = append(ids, id)
		}
		del := tx.Model(&reservationRow{})
		if len(ids) > 0 {
			del = del.Where("id NOT IN ?", ids)
		} else {
			del = del.Where("1 = 1")
		}
		if err := del.Delete(&reservationRow{}).Error; err != nil {
			return fmt.Errorf("delete stale reservations: %w", err)
		}
		if len(st) == 0 {
			return nil
		}
		rows := make([]reservationRow, 0, len(st))
		for _, r := range st.Sorted() {
			rows = append(rows, toRow(r))
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error; err != nil {
			return fmt.Errorf("upsert reservations: %w", err)
		}
		return nil
	})
}
