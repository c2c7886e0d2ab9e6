package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"miftah-backend/internal/models"
)

type StudySetRepo struct {
	pool *pgxpool.Pool
}

func NewStudySetRepo(pool *pgxpool.Pool) *StudySetRepo {
	return &StudySetRepo{pool: pool}
}

// CreateWithItems inserts the set and every child row in one
// transaction. Either the set and all its items exist afterwards, or
// nothing does; a set with zero items is never observable.
func (r *StudySetRepo) CreateWithItems(ctx context.Context, set *models.StudySet, cards []models.Flashcard, questions []models.QuizQuestion) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO study_sets (id, owner_id, set_type, language, title, source_text, is_shared)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`,
		set.ID, set.OwnerID, set.SetType, set.Language, set.Title, set.SourceText, set.IsShared,
	).Scan(&set.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert study set: %w", err)
	}

	for i := range cards {
		_, err = tx.Exec(ctx,
			`INSERT INTO flashcards (id, study_set_id, position, question, answer)
			 VALUES ($1, $2, $3, $4, $5)`,
			cards[i].ID, set.ID, cards[i].Position, cards[i].Question, cards[i].Answer,
		)
		if err != nil {
			return fmt.Errorf("failed to insert flashcard %d: %w", i, err)
		}
	}

	for i := range questions {
		optionsBytes, merr := json.Marshal(questions[i].Options)
		if merr != nil {
			return fmt.Errorf("failed to encode options for question %d: %w", i, merr)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO quiz_questions (id, study_set_id, position, question, options, correct_index, explanation)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			questions[i].ID, set.ID, questions[i].Position, questions[i].Question,
			optionsBytes, questions[i].CorrectIndex, questions[i].Explanation,
		)
		if err != nil {
			return fmt.Errorf("failed to insert quiz question %d: %w", i, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *StudySetRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.StudySet, error) {
	set := &models.StudySet{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, set_type, language, title, source_text, is_shared, created_at
		 FROM study_sets WHERE id = $1`, id,
	).Scan(&set.ID, &set.OwnerID, &set.SetType, &set.Language, &set.Title,
		&set.SourceText, &set.IsShared, &set.CreatedAt)
	if err != nil {
		return nil, err
	}
	return set, nil
}

// ListByOwner returns the owner's sets newest first, optionally
// filtered by set type.
func (r *StudySetRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, setType string) ([]*models.StudySet, error) {
	query := `SELECT id, owner_id, set_type, language, title, source_text, is_shared, created_at
		FROM study_sets WHERE owner_id = $1`
	args := []interface{}{ownerID}
	if setType != "" {
		query += ` AND set_type = $2`
		args = append(args, setType)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sets []*models.StudySet
	for rows.Next() {
		set := &models.StudySet{}
		err := rows.Scan(&set.ID, &set.OwnerID, &set.SetType, &set.Language, &set.Title,
			&set.SourceText, &set.IsShared, &set.CreatedAt)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, rows.Err()
}

func (r *StudySetRepo) GetFlashcards(ctx context.Context, setID uuid.UUID) ([]models.Flashcard, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, study_set_id, position, question, answer
		 FROM flashcards WHERE study_set_id = $1 ORDER BY position ASC`, setID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []models.Flashcard
	for rows.Next() {
		c := models.Flashcard{}
		if err := rows.Scan(&c.ID, &c.StudySetID, &c.Position, &c.Question, &c.Answer); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (r *StudySetRepo) GetQuestions(ctx context.Context, setID uuid.UUID) ([]models.QuizQuestion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, study_set_id, position, question, options, correct_index, explanation
		 FROM quiz_questions WHERE study_set_id = $1 ORDER BY position ASC`, setID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []models.QuizQuestion
	for rows.Next() {
		q := models.QuizQuestion{}
		var optionsBytes []byte
		if err := rows.Scan(&q.ID, &q.StudySetID, &q.Position, &q.Question, &optionsBytes, &q.CorrectIndex, &q.Explanation); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(optionsBytes, &q.Options); err != nil {
			return nil, fmt.Errorf("failed to decode options for question %s: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (r *StudySetRepo) SetShared(ctx context.Context, id uuid.UUID, shared bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE study_sets SET is_shared = $1 WHERE id = $2`, shared, id)
	return err
}

// Delete removes the set; child rows go with it via ON DELETE CASCADE.
func (r *StudySetRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM study_sets WHERE id = $1`, id)
	return err
}
