package questionnaire

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrResponseNotFound  = errors.New("questionnaire response not found")
	ErrDuplicateResponse = errors.New("questionnaire response already exists for user")
	ErrVersionConflict   = errors.New("questionnaire response was modified concurrently")
)

type Repository interface {
	Create(ctx context.Context, resp *QuestionnaireResponse) error
	Update(ctx context.Context, resp *QuestionnaireResponse) error
	GetByUserID(ctx context.Context, userID int64) (*QuestionnaireResponse, error)
	Delete(ctx context.Context, userID int64) error

	// SampleComplete returns up to sampleSize random complete responses,
	// excluding the given user.
	SampleComplete(ctx context.Context, excludeUserID int64, sampleSize int) ([]*QuestionnaireResponse, error)
	CountComplete(ctx context.Context) (int64, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const responseColumns = `
    id, user_id, responses,
    values_scores, lifestyle_scores, interests_scores, personality_scores, communication_scores,
    overall_score,
    questionnaire_version, questionnaire_type, questionnaire_language,
    completion_time, completion_percentage, is_complete, completed_at,
    version, created_at, updated_at
`

func (r *postgresRepository) Create(ctx context.Context, resp *QuestionnaireResponse) error {
	query := `
        INSERT INTO questionnaire_responses (
            user_id, responses,
            values_scores, lifestyle_scores, interests_scores, personality_scores, communication_scores,
            overall_score,
            questionnaire_version, questionnaire_type, questionnaire_language,
            completion_time, completion_percentage, is_complete, completed_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
        RETURNING id, version, created_at, updated_at
    `

	err := r.db.QueryRowxContext(
		ctx, query,
		resp.UserID, resp.Responses,
		resp.Profile.Values, resp.Profile.Lifestyle, resp.Profile.Interests,
		resp.Profile.Personality, resp.Profile.Communication,
		resp.Profile.OverallScore,
		resp.Questionnaire.Version, resp.Questionnaire.Type, resp.Questionnaire.Language,
		resp.CompletionTime, resp.CompletionPercentage, resp.IsComplete, resp.CompletedAt,
	).Scan(&resp.ID, &resp.Version, &resp.CreatedAt, &resp.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicateResponse
	}

	return err
}

// Update persists a merged response guarded by an optimistic version check.
// A concurrent writer bumps the version first and this write reports
// ErrVersionConflict instead of silently losing the other merge.
func (r *postgresRepository) Update(ctx context.Context, resp *QuestionnaireResponse) error {
	query := `
        UPDATE questionnaire_responses
        SET responses = $3,
            values_scores = $4, lifestyle_scores = $5, interests_scores = $6,
            personality_scores = $7, communication_scores = $8,
            overall_score = $9,
            questionnaire_version = $10, questionnaire_type = $11, questionnaire_language = $12,
            completion_time = $13, completion_percentage = $14,
            is_complete = $15, completed_at = $16,
            version = version + 1,
            updated_at = CURRENT_TIMESTAMP
        WHERE user_id = $1 AND version = $2
        RETURNING version, updated_at
    `

	err := r.db.QueryRowxContext(
		ctx, query,
		resp.UserID, resp.Version, resp.Responses,
		resp.Profile.Values, resp.Profile.Lifestyle, resp.Profile.Interests,
		resp.Profile.Personality, resp.Profile.Communication,
		resp.Profile.OverallScore,
		resp.Questionnaire.Version, resp.Questionnaire.Type, resp.Questionnaire.Language,
		resp.CompletionTime, resp.CompletionPercentage, resp.IsComplete, resp.CompletedAt,
	).Scan(&resp.Version, &resp.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return ErrVersionConflict
	}

	return err
}

func (r *postgresRepository) GetByUserID(ctx context.Context, userID int64) (*QuestionnaireResponse, error) {
	query := `SELECT ` + responseColumns + ` FROM questionnaire_responses WHERE user_id = $1`

	row := r.db.QueryRowxContext(ctx, query, userID)
	resp, err := scanResponse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResponseNotFound
	}

	return resp, err
}

func (r *postgresRepository) Delete(ctx context.Context, userID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM questionnaire_responses WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrResponseNotFound
	}

	return nil
}

func (r *postgresRepository) SampleComplete(ctx context.Context, excludeUserID int64, sampleSize int) ([]*QuestionnaireResponse, error) {
	// Random sampling keeps ranking queries bounded; fine for the pool
	// sizes we run at, an index would replace this at scale.
	query := `
        SELECT ` + responseColumns + `
        FROM questionnaire_responses
        WHERE is_complete = TRUE AND user_id != $1
        ORDER BY RANDOM()
        LIMIT $2
    `

	rows, err := r.db.QueryxContext(ctx, query, excludeUserID, sampleSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []*QuestionnaireResponse
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}

	return responses, rows.Err()
}

func (r *postgresRepository) CountComplete(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM questionnaire_responses WHERE is_complete = TRUE`)
	return count, err
}

// rowScanner covers both *sqlx.Row and *sqlx.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanResponse(row rowScanner) (*QuestionnaireResponse, error) {
	var resp QuestionnaireResponse

	err := row.Scan(
		&resp.ID, &resp.UserID, &resp.Responses,
		&resp.Profile.Values, &resp.Profile.Lifestyle, &resp.Profile.Interests,
		&resp.Profile.Personality, &resp.Profile.Communication,
		&resp.Profile.OverallScore,
		&resp.Questionnaire.Version, &resp.Questionnaire.Type, &resp.Questionnaire.Language,
		&resp.CompletionTime, &resp.CompletionPercentage, &resp.IsComplete, &resp.CompletedAt,
		&resp.Version, &resp.CreatedAt, &resp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &resp, nil
}
