package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"pinterest-ai-studio/internal/domain"
	"pinterest-ai-studio/internal/domain/model"
	"pinterest-ai-studio/internal/domain/ports/repository"
)

var _ repository.BulkJobRepository = (*bulkJobRepo)(nil)

type bulkJobRepo struct {
	pool *pgxpool.Pool
}

func NewBulkJobRepo(pool *pgxpool.Pool) *bulkJobRepo {
	return &bulkJobRepo{pool: pool}
}

const jobColumns = `id, user_id, name, description_cfg, content_cfg, image_cfg, pin_template_id,
width, height, total_rows, completed_rows, failed_rows, status, error, created_at, updated_at,
started_at, completed_at`

func (r *bulkJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.BulkJob, rows []*model.BulkRow) error {
	descCfg, err := json.Marshal(job.Description)
	if err != nil {
		return err
	}
	contentCfg, err := json.Marshal(job.Content)
	if err != nil {
		return err
	}
	imageCfg, err := json.Marshal(job.Image)
	if err != nil {
		return err
	}

	const insertJob = `
INSERT INTO bulk_jobs (id, user_id, name, description_cfg, content_cfg, image_cfg, pin_template_id,
  width, height, total_rows, completed_rows, failed_rows, status, error, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, 0, 0, $11, '', $12, $13);`

	if _, err := execSQL(ctx, r.pool, tx, insertJob,
		job.ID, job.UserID, job.Name, descCfg, contentCfg, imageCfg, job.PinTemplateID,
		job.Width, job.Height, job.TotalRows, string(job.Status), job.CreatedAt, job.UpdatedAt); err != nil {
		return err
	}

	const insertRow = `
INSERT INTO bulk_rows (id, job_id, position, keywords, source_image, title, description, alt_text,
  quantity, publish_at, status, error, stage_logs, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, '', '[]', $12, $13);`

	for _, row := range rows {
		if _, err := execSQL(ctx, r.pool, tx, insertRow,
			row.ID, row.JobID, row.Position, row.Keywords, row.SourceImage,
			row.Title, row.Description, row.AltText, row.Quantity, row.PublishAt,
			string(row.Status), row.CreatedAt, row.UpdatedAt); err != nil {
			return err
		}
	}
	return nil
}

func scanJob(row interface{ Scan(...interface{}) error }) (*model.BulkJob, error) {
	var j model.BulkJob
	var descCfg, contentCfg, imageCfg []byte
	var pinTemplateID *string
	var status string
	err := row.Scan(&j.ID, &j.UserID, &j.Name, &descCfg, &contentCfg, &imageCfg, &pinTemplateID,
		&j.Width, &j.Height, &j.TotalRows, &j.CompletedRows, &j.FailedRows, &status, &j.Error,
		&j.CreatedAt, &j.UpdatedAt, &j.StartedAt, &j.CompletedAt)
	if err != nil {
		return nil, translateNoRows(err)
	}
	j.Status = model.BulkJobStatus(status)
	if pinTemplateID != nil {
		j.PinTemplateID = *pinTemplateID
	}
	if err := json.Unmarshal(descCfg, &j.Description); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	if err := json.Unmarshal(contentCfg, &j.Content); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	if err := json.Unmarshal(imageCfg, &j.Image); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return &j, nil
}

func (r *bulkJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.BulkJob, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+jobColumns+` FROM bulk_jobs WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

func (r *bulkJobRepo) FindByIDForUser(ctx context.Context, tx repository.Tx, id, userID string) (*model.BulkJob, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`SELECT `+jobColumns+` FROM bulk_jobs WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

func (r *bulkJobRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, f repository.JobFilter) ([]*model.BulkJob, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + jobColumns + ` FROM bulk_jobs WHERE user_id = $1`
	args := []interface{}{userID}
	if f.Status != "" {
		q += ` AND status = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4`
		args = append(args, string(f.Status), limit, f.Offset)
	} else {
		q += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, limit, f.Offset)
	}

	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.BulkJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// MarkProcessing is the idempotent guard: only a PENDING job transitions.
func (r *bulkJobRepo) MarkProcessing(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	tag, err := execSQL(ctx, r.pool, tx, `
UPDATE bulk_jobs
SET status = $1, started_at = now(), updated_at = now()
WHERE id = $2 AND status = $3`,
		string(model.BulkJobProcessing), id, string(model.BulkJobPending))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateStatusIf transitions atomically: the status guard in the WHERE clause
// keeps a lost cancel/complete race from overwriting a terminal status.
func (r *bulkJobRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, id string, status model.BulkJobStatus, errText string, from ...model.BulkJobStatus) (bool, error) {
	var completedAt interface{}
	switch status {
	case model.BulkJobCompleted, model.BulkJobFailed, model.BulkJobCancelled:
		completedAt = time.Now()
	}
	allowed := make([]string, 0, len(from))
	for _, s := range from {
		allowed = append(allowed, string(s))
	}
	tag, err := execSQL(ctx, r.pool, tx, `
UPDATE bulk_jobs
SET status = $1, error = $2, completed_at = COALESCE($3, completed_at), updated_at = now()
WHERE id = $4 AND status = ANY($5)`,
		string(status), errText, completedAt, id, allowed)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *bulkJobRepo) UpdateCounters(ctx context.Context, tx repository.Tx, id string, completed, failed int) error {
	tag, err := execSQL(ctx, r.pool, tx, `
UPDATE bulk_jobs SET completed_rows = $1, failed_rows = $2, updated_at = now() WHERE id = $3`,
		completed, failed, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete cascades to bulk_rows and generated_pins via FK constraints.
func (r *bulkJobRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM bulk_jobs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *bulkJobRepo) FindStaleProcessing(ctx context.Context, tx repository.Tx, cutoff time.Time) ([]*model.BulkJob, error) {
	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT `+jobColumns+` FROM bulk_jobs WHERE status = $1 AND updated_at < $2 ORDER BY updated_at`,
		string(model.BulkJobProcessing), cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.BulkJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

const rowColumns = `id, job_id, position, keywords, source_image, title, description, alt_text,
quantity, publish_at, status, error, stage_logs, created_at, updated_at`

func scanRow(row interface{ Scan(...interface{}) error }) (*model.BulkRow, error) {
	var br model.BulkRow
	var status string
	var logs []byte
	err := row.Scan(&br.ID, &br.JobID, &br.Position, &br.Keywords, &br.SourceImage,
		&br.Title, &br.Description, &br.AltText, &br.Quantity, &br.PublishAt,
		&status, &br.Error, &logs, &br.CreatedAt, &br.UpdatedAt)
	if err != nil {
		return nil, translateNoRows(err)
	}
	br.Status = model.BulkRowStatus(status)
	if len(logs) > 0 {
		if err := json.Unmarshal(logs, &br.StageLogs); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return &br, nil
}

// ListRows returns a job's rows in creation order.
func (r *bulkJobRepo) ListRows(ctx context.Context, tx repository.Tx, jobID string) ([]*model.BulkRow, error) {
	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT `+rowColumns+` FROM bulk_rows WHERE job_id = $1 ORDER BY position`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.BulkRow
	for rows.Next() {
		br, err := scanRow(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, br)
	}
	return out, rows.Err()
}

func (r *bulkJobRepo) SaveRow(ctx context.Context, tx repository.Tx, row *model.BulkRow) error {
	row.UpdatedAt = time.Now()
	logs, err := json.Marshal(row.StageLogs)
	if err != nil {
		return err
	}
	if row.StageLogs == nil {
		logs = []byte(`[]`)
	}
	tag, err := execSQL(ctx, r.pool, tx, `
UPDATE bulk_rows
SET status = $1, error = $2, stage_logs = $3, title = $4, description = $5, alt_text = $6, updated_at = $7
WHERE id = $8`,
		string(row.Status), row.Error, logs, row.Title, row.Description, row.AltText, row.UpdatedAt, row.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *bulkJobRepo) CreatePin(ctx context.Context, tx repository.Tx, pin *model.GeneratedPin) error {
	keywords, err := json.Marshal(pin.Keywords)
	if err != nil {
		return err
	}
	logs, err := json.Marshal(pin.StageLogs)
	if err != nil {
		return err
	}
	if pin.StageLogs == nil {
		logs = []byte(`[]`)
	}
	const q = `
INSERT INTO generated_pins (id, row_id, title, description, keywords, alt_text, image_path, status, stage_logs, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`
	_, err = execSQL(ctx, r.pool, tx, q,
		pin.ID, pin.RowID, pin.Title, pin.Description, keywords, pin.AltText,
		pin.ImagePath, string(pin.Status), logs, pin.CreatedAt)
	return err
}

func scanPin(row interface{ Scan(...interface{}) error }) (*model.GeneratedPin, error) {
	var p model.GeneratedPin
	var keywords, logs []byte
	var status string
	err := row.Scan(&p.ID, &p.RowID, &p.Title, &p.Description, &keywords, &p.AltText,
		&p.ImagePath, &status, &logs, &p.CreatedAt)
	if err != nil {
		return nil, translateNoRows(err)
	}
	p.Status = model.PinStatus(status)
	if len(keywords) > 0 {
		if err := json.Unmarshal(keywords, &p.Keywords); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	if len(logs) > 0 {
		if err := json.Unmarshal(logs, &p.StageLogs); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return &p, nil
}

func (r *bulkJobRepo) ListPinsByJob(ctx context.Context, tx repository.Tx, jobID string) ([]*model.GeneratedPin, error) {
	rows, err := queryRows(ctx, r.pool, tx, `
SELECT p.id, p.row_id, p.title, p.description, p.keywords, p.alt_text, p.image_path, p.status, p.stage_logs, p.created_at
FROM generated_pins p
JOIN bulk_rows br ON br.id = p.row_id
WHERE br.job_id = $1
ORDER BY br.position, p.created_at`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.GeneratedPin
	for rows.Next() {
		p, err := scanPin(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
