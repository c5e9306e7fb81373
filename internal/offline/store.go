package offline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// operationModel is the sqlite row of a queued operation. Seq preserves
// enqueue order even when two operations share a timestamp.
type operationModel struct {
	Seq            int64     `gorm:"primaryKey;autoIncrement"`
	ID             string    `gorm:"type:text;uniqueIndex;not null"`
	Kind           string    `gorm:"type:text;not null"`
	Method         string    `gorm:"type:text;not null"`
	Path           string    `gorm:"type:text;not null"`
	Body           string    `gorm:"type:text"`
	IdempotencyKey string    `gorm:"type:text;not null"`
	Status         string    `gorm:"type:text;index;not null"`
	Attempts       int       `gorm:"not null;default:0"`
	LastError      string    `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time
}

func (operationModel) TableName() string { return "offline_operations" }

func (m *operationModel) toDomain() (*Operation, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("offline: corrupt operation id %q: %w", m.ID, err)
	}
	op := &Operation{
		ID:             id,
		Kind:           Kind(m.Kind),
		Method:         m.Method,
		Path:           m.Path,
		IdempotencyKey: m.IdempotencyKey,
		CreatedAt:      m.CreatedAt,
		Attempts:       m.Attempts,
		LastError:      m.LastError,
		Status:         Status(m.Status),
	}
	if m.Body != "" {
		op.Body = []byte(m.Body)
	}
	return op, nil
}

func operationModelFrom(op *Operation) *operationModel {
	return &operationModel{
		ID:             op.ID.String(),
		Kind:           string(op.Kind),
		Method:         op.Method,
		Path:           op.Path,
		Body:           string(op.Body),
		IdempotencyKey: op.IdempotencyKey,
		Status:         string(op.Status),
		Attempts:       op.Attempts,
		LastError:      op.LastError,
		CreatedAt:      op.CreatedAt,
	}
}

// stateModel holds small agent settings such as the catalog sync cursor
type stateModel struct {
	Name  string `gorm:"primaryKey;type:text"`
	Value string `gorm:"type:text"`
}

func (stateModel) TableName() string { return "offline_state" }

// Store is the local sqlite database of the agent
type Store struct {
	db *gorm.DB
}

// OpenStore opens (or creates) the sqlite database at path. ":memory:" is
// accepted for tests. The pool is held to one connection so every write is
// serialized and an in-memory database is not split across connections.
func OpenStore(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=FULL"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("offline: open store: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&operationModel{}, &stateModel{}, &variantModel{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("offline: migrate store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save inserts op. It returns only after the row is committed.
func (s *Store) Save(ctx context.Context, op *Operation) error {
	if err := op.validate(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(operationModelFrom(op)).Error
}

// Get returns the operation with id
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Operation, error) {
	var m operationModel
	err := s.db.WithContext(ctx).Where("id = ?", id.String()).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOperationNotFound
	}
	if err != nil {
		return nil, err
	}
	return m.toDomain()
}

// List returns operations with status in enqueue order. limit <= 0 means all.
func (s *Store) List(ctx context.Context, status Status, limit int) ([]*Operation, error) {
	q := s.db.WithContext(ctx).Where("status = ?", string(status)).Order("seq ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []operationModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	ops := make([]*Operation, 0, len(rows))
	for i := range rows {
		op, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// Update writes the mutable fields of op
func (s *Store) Update(ctx context.Context, op *Operation) error {
	res := s.db.WithContext(ctx).Model(&operationModel{}).
		Where("id = ?", op.ID.String()).
		Updates(map[string]any{
			"status":     string(op.Status),
			"attempts":   op.Attempts,
			"last_error": op.LastError,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOperationNotFound
	}
	return nil
}

// PurgeDone deletes acknowledged operations
func (s *Store) PurgeDone(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("status = ?", string(StatusDone)).Delete(&operationModel{})
	return res.RowsAffected, res.Error
}

// Count returns how many operations have status
func (s *Store) Count(ctx context.Context, status Status) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&operationModel{}).Where("status = ?", string(status)).Count(&n).Error
	return n, err
}

// OldestPending returns the creation time of the head of the queue
func (s *Store) OldestPending(ctx context.Context) (*time.Time, error) {
	ops, err := s.List(ctx, StatusPending, 1)
	if err != nil || len(ops) == 0 {
		return nil, err
	}
	t := ops[0].CreatedAt
	return &t, nil
}

// Upsert inserts op or replaces an existing row with the same ID, keeping
// its queue position.
func (s *Store) Upsert(ctx context.Context, op *Operation) error {
	if err := op.validate(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "method", "path", "body", "idempotency_key", "status", "attempts", "last_error"}),
	}).Create(operationModelFrom(op)).Error
}

func (s *Store) getState(ctx context.Context, key string) (string, error) {
	var m stateModel
	err := s.db.WithContext(ctx).Where("name = ?", key).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	return m.Value, err
}

func (s *Store) setState(ctx context.Context, key, value string) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&stateModel{Name: key, Value: value}).Error
}
