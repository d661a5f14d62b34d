package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"artix/contexts/meme-contest/contest-service/domain/entities"
	"artix/contexts/meme-contest/contest-service/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists mint attempts so orphaned registrations survive a
// restart.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) GetMintAttempt(ctx context.Context, entryID uint64) (entities.MintAttempt, bool, error) {
	var row mintAttemptModel
	err := r.db.WithContext(ctx).
		Where("entry_id = ?", int64(entryID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.MintAttempt{}, false, nil
		}
		return entities.MintAttempt{}, false, r.logError("contest_repo_get_mint_attempt_failed", err, "entry_id", entryID)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) SaveMintAttempt(ctx context.Context, attempt entities.MintAttempt) error {
	row := mintAttemptModelFromEntity(attempt)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "entry_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"registration_id":      row.RegistrationID,
			"registration_tx_hash": row.RegistrationTxHash,
			"status":               row.Status,
			"attempts":             row.Attempts,
			"last_error":           row.LastError,
			"mint_tx_hash":         row.MintTxHash,
			"updated_at":           row.UpdatedAt,
		}),
	}).Create(&row).Error
	if err != nil {
		return r.logError("contest_repo_save_mint_attempt_failed", err,
			"entry_id", attempt.EntryID,
			"registration_id", attempt.RegistrationID,
			"status", string(attempt.Status),
		)
	}
	return nil
}

func (r *Repository) ListOrphanedAttempts(ctx context.Context, limit int, maxAttempts int) ([]entities.MintAttempt, error) {
	if limit <= 0 {
		limit = 100
	}
	query := r.db.WithContext(ctx).
		Where("status <> ?", string(entities.MintAttemptMinted)).
		Where("registration_id <> ''")
	if maxAttempts > 0 {
		query = query.Where("attempts < ?", maxAttempts)
	}
	var rows []mintAttemptModel
	err := query.
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("contest_repo_list_orphaned_attempts_failed", err, "limit", limit)
	}
	items := make([]entities.MintAttempt, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "meme-contest/contest-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("contest repository operation failed", fields...)
	return err
}

type mintAttemptModel struct {
	EntryID            int64     `gorm:"column:entry_id;primaryKey"`
	RegistrationID     string    `gorm:"column:registration_id"`
	RegistrationTxHash string    `gorm:"column:registration_tx_hash"`
	Status             string    `gorm:"column:status"`
	Attempts           int       `gorm:"column:attempts"`
	LastError          string    `gorm:"column:last_error"`
	MintTxHash         string    `gorm:"column:mint_tx_hash"`
	CreatedAt          time.Time `gorm:"column:created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

func (mintAttemptModel) TableName() string {
	return "mint_attempts"
}

func mintAttemptModelFromEntity(attempt entities.MintAttempt) mintAttemptModel {
	return mintAttemptModel{
		EntryID:            int64(attempt.EntryID),
		RegistrationID:     attempt.RegistrationID,
		RegistrationTxHash: attempt.RegistrationTxHash,
		Status:             string(attempt.Status),
		Attempts:           attempt.Attempts,
		LastError:          attempt.LastError,
		MintTxHash:         attempt.MintTxHash,
		CreatedAt:          attempt.CreatedAt.UTC(),
		UpdatedAt:          attempt.UpdatedAt.UTC(),
	}
}

func (m mintAttemptModel) toEntity() entities.MintAttempt {
	return entities.MintAttempt{
		EntryID:            uint64(m.EntryID),
		RegistrationID:     m.RegistrationID,
		RegistrationTxHash: m.RegistrationTxHash,
		Status:             entities.MintAttemptStatus(m.Status),
		Attempts:           m.Attempts,
		LastError:          m.LastError,
		MintTxHash:         m.MintTxHash,
		CreatedAt:          m.CreatedAt.UTC(),
		UpdatedAt:          m.UpdatedAt.UTC(),
	}
}

var _ ports.MintAttemptRepository = (*Repository)(nil)
