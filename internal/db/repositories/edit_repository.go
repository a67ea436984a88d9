package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bugtracker/bugtracker/internal/db/models"
)

const editColumns = `id, timestamp, op, collection, target, update_payload, actor`

// EditRepository appends to and reads the edit log. It offers no update or
// delete; the edits table additionally rejects both with a trigger.
type EditRepository struct {
	db *sqlx.DB
}

// NewEditRepository creates a new EditRepository
func NewEditRepository(db *sqlx.DB) *EditRepository {
	return &EditRepository{db: db}
}

// Append inserts rec, assigning its ID and, when unset, its timestamp.
func (r *EditRepository) Append(ctx context.Context, rec *models.EditRecord) error {
	rec.ID = uuid.New().String()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if rec.Target == nil {
		rec.Target = models.StringMap{}
	}

	query := `
		INSERT INTO edits (id, timestamp, op, collection, target, update_payload, actor)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.Timestamp,
		string(rec.Op),
		rec.Collection,
		rec.Target,
		rec.Update,
		rec.Actor,
	)
	if err != nil {
		return storeError("append edit record", err)
	}
	return nil
}

// List returns one page of edit records, newest first, plus the total match count.
func (r *EditRepository) List(ctx context.Context, filter models.EditFilter) ([]*models.EditRecord, int, error) {
	var f filterBuilder
	if filter.Collection != "" {
		f.add(`collection = $%d`, filter.Collection)
	}
	if filter.Op != "" {
		f.add(`op = $%d`, string(filter.Op))
	}
	if filter.ActorID != "" {
		f.add(`actor ->> 'userId' = $%d`, filter.ActorID)
	}
	if filter.TargetKey != "" && filter.TargetID != "" {
		f.add(`target @> jsonb_build_object(`+f.param(filter.TargetKey)+`::text, $%d::text)`, filter.TargetID)
	}
	if filter.Since != nil {
		f.add(`timestamp >= $%d`, *filter.Since)
	}
	if filter.Until != nil {
		f.add(`timestamp <= $%d`, *filter.Until)
	}

	where := f.where()
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM edits`+where, f.args...); err != nil {
		return nil, 0, storeError("count edit records", err)
	}

	query := `SELECT ` + editColumns + ` FROM edits` + where +
		` ORDER BY timestamp DESC LIMIT ` + f.param(filter.Limit()) + ` OFFSET ` + f.param(filter.Offset())

	records := make([]*models.EditRecord, 0)
	if err := r.db.SelectContext(ctx, &records, query, f.args...); err != nil {
		return nil, 0, storeError("list edit records", err)
	}
	return records, total, nil
}
