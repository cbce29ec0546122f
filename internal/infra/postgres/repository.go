package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/titledoctor/pipeline-service/internal/domain/entity"
	"github.com/titledoctor/pipeline-service/internal/domain/port"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	videos, titles, err := marshalLists(job)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO title_jobs (
			id, channel, email, status, error_message,
			channel_id, channel_name, videos, improved_titles,
			email_id, version, created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

	_, err = r.pool.Exec(ctx, query,
		job.ID, job.Channel, job.Email, string(job.Status), job.ErrorMessage,
		job.ChannelID, job.ChannelName, videos, titles,
		job.EmailID, job.Version, job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Update writes the whole record back, guarded by the version the caller
// loaded. A lost write means a concurrent or duplicate stage execution
// touched the record first; the caller gets ErrVersionConflict and must
// not emit anything.
func (r *JobRepository) Update(ctx context.Context, job *entity.Job) error {
	videos, titles, err := marshalLists(job)
	if err != nil {
		return err
	}

	query := `
		UPDATE title_jobs SET
			status=$2, error_message=$3, channel_id=$4, channel_name=$5,
			videos=$6, improved_titles=$7, email_id=$8,
			version=version+1, updated_at=$9, completed_at=$10
		WHERE id=$1 AND version=$11`

	tag, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.ErrorMessage, job.ChannelID, job.ChannelName,
		videos, titles, job.EmailID,
		job.UpdatedAt, job.CompletedAt, job.Version,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return port.ErrVersionConflict
	}
	job.Version++
	return nil
}

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	query := selectColumns + ` FROM title_jobs WHERE id=$1`

	job, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, port.ErrJobNotFound
		}
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	return job, nil
}

func (r *JobRepository) ListStale(ctx context.Context, cutoff time.Time) ([]*entity.Job, error) {
	query := selectColumns + `
		FROM title_jobs
		WHERE status NOT IN ('COMPLETED','FAILED') AND updated_at < $1
		ORDER BY updated_at`

	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*entity.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stale job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

const selectColumns = `
	SELECT id, channel, email, status, error_message,
		channel_id, channel_name, videos, improved_titles,
		email_id, version, created_at, updated_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*entity.Job, error) {
	job := &entity.Job{}
	var status string
	var videos, titles []byte
	err := row.Scan(
		&job.ID, &job.Channel, &job.Email, &status, &job.ErrorMessage,
		&job.ChannelID, &job.ChannelName, &videos, &titles,
		&job.EmailID, &job.Version, &job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Status = entity.JobStatus(status)
	if err := json.Unmarshal(videos, &job.Videos); err != nil {
		return nil, fmt.Errorf("decode videos: %w", err)
	}
	if err := json.Unmarshal(titles, &job.ImprovedTitles); err != nil {
		return nil, fmt.Errorf("decode improved titles: %w", err)
	}
	return job, nil
}

func marshalLists(job *entity.Job) ([]byte, []byte, error) {
	videos, err := json.Marshal(job.Videos)
	if err != nil {
		return nil, nil, fmt.Errorf("encode videos: %w", err)
	}
	titles, err := json.Marshal(job.ImprovedTitles)
	if err != nil {
		return nil, nil, fmt.Errorf("encode improved titles: %w", err)
	}
	return videos, titles, nil
}
