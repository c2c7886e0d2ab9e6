package pipeline

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"miftah-backend/internal/models"
)

// Request bounds, matching the generation form.
const (
	MinItemCount = 1
	MaxItemCount = 30

	// MaxDocumentSize caps uploaded PDFs at 10 MB.
	MaxDocumentSize = 10 * 1024 * 1024

	// storedSourceChars bounds the source text kept on the study set
	// for provenance. It is an audit trail, not input for regeneration.
	storedSourceChars = 5000
)

// Request is the ephemeral input of one generation run. Exactly one of
// Text/Document must be present; document extraction collapses to text
// before any later stage runs.
type Request struct {
	Kind     Kind
	Text     string
	Document []byte
	Count    int
	Title    string
}

// Store is the persistence boundary the pipeline commits through. The
// implementation must create the set and all its items atomically.
type Store interface {
	CreateWithItems(ctx context.Context, set *models.StudySet, cards []models.Flashcard, questions []models.QuizQuestion) error
}

// Result is the committed outcome of a successful run. Exactly one of
// Flashcards/Questions is populated.
type Result struct {
	Set        *models.StudySet
	Flashcards []models.Flashcard
	Questions  []models.QuizQuestion
}

// Service runs the full generation pipeline synchronously: extract (if
// PDF), detect language, build prompt, call the generation service,
// validate, persist. Failure at any stage short-circuits with a
// localized *Error and nothing is ever partially persisted.
type Service struct {
	generator TextGenerator
	store     Store
}

func NewService(generator TextGenerator, store Store) *Service {
	return &Service{generator: generator, store: store}
}

// Generate executes one request for the given owner. The returned error
// is always a *Error when non-nil.
func (s *Service) Generate(ctx context.Context, ownerID uuid.UUID, req Request) (*Result, *Error) {
	if req.Kind != KindFlashcards && req.Kind != KindQuiz {
		return nil, inputError(msgBadRequest(English))
	}
	if req.Count < MinItemCount || req.Count > MaxItemCount {
		return nil, inputError(msgBadRequest(English))
	}

	text, perr := s.resolveSourceText(req)
	if perr != nil {
		return nil, perr
	}

	lang := DetectLanguage(text)

	prompt := BuildPrompt(req.Kind, lang, text, req.Count)

	raw, err := s.generator.Generate(ctx, prompt, maxTokensFor(req.Kind))
	if err != nil {
		return nil, &Error{
			Stage:   StageGeneration,
			Code:    CodeServiceError,
			Message: msgServiceError(lang, err),
			Err:     err,
		}
	}

	artifact, perr := ParseArtifact(req.Kind, lang, raw)
	if perr != nil {
		return nil, perr
	}

	result, perr := s.persist(ctx, ownerID, req, artifact, text)
	if perr != nil {
		return nil, perr
	}

	log.Printf("study set %s created: kind=%s lang=%s items=%d", result.Set.ID, req.Kind, lang, artifact.Items())
	return result, nil
}

// resolveSourceText enforces the input-shape rules and collapses a
// document to text. No external call has been made yet when any of
// these errors fire.
func (s *Service) resolveSourceText(req Request) (string, *Error) {
	hasText := strings.TrimSpace(req.Text) != ""
	hasDocument := len(req.Document) > 0

	if hasText == hasDocument {
		// Both or neither; the request must carry exactly one source.
		return "", inputError(msgDocumentRequired(Arabic))
	}

	if hasDocument {
		if len(req.Document) > MaxDocumentSize {
			return "", inputError(msgBadRequest(Arabic))
		}
		text, _, perr := ExtractPDF(req.Document)
		if perr != nil {
			return "", perr
		}
		return text, nil
	}

	text := strings.TrimSpace(req.Text)
	if utf8.RuneCountInString(text) < minSourceChars {
		lang := DetectLanguage(text)
		return "", inputError(msgTextTooShort(lang))
	}
	return text, nil
}

// persist maps the validated artifact onto the persisted model, with
// positions 0..n-1 preserving the artifact's order exactly, and commits
// everything as one unit.
func (s *Service) persist(ctx context.Context, ownerID uuid.UUID, req Request, artifact *Artifact, sourceText string) (*Result, *Error) {
	set := &models.StudySet{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		SetType:    string(req.Kind),
		Language:   string(artifact.Language),
		Title:      req.Title,
		SourceText: truncateRunes(sourceText, storedSourceChars),
		CreatedAt:  time.Now(),
	}

	var cards []models.Flashcard
	var questions []models.QuizQuestion

	switch artifact.Kind {
	case KindFlashcards:
		cards = make([]models.Flashcard, len(artifact.Flashcards))
		for i, item := range artifact.Flashcards {
			cards[i] = models.Flashcard{
				ID:         uuid.New(),
				StudySetID: set.ID,
				Position:   i,
				Question:   item.Question,
				Answer:     item.Answer,
			}
		}
	case KindQuiz:
		questions = make([]models.QuizQuestion, len(artifact.Questions))
		for i, item := range artifact.Questions {
			questions[i] = models.QuizQuestion{
				ID:           uuid.New(),
				StudySetID:   set.ID,
				Position:     i,
				Question:     item.Question,
				Options:      item.Options,
				CorrectIndex: item.CorrectIndex,
				Explanation:  item.Explanation,
			}
		}
	}

	if err := s.store.CreateWithItems(ctx, set, cards, questions); err != nil {
		return nil, &Error{
			Stage:   StagePersistence,
			Code:    CodePersistenceFailed,
			Message: msgPersistenceFailed(artifact.Language),
			Err:     err,
		}
	}

	return &Result{Set: set, Flashcards: cards, Questions: questions}, nil
}

func inputError(message string) *Error {
	return &Error{
		Stage:   StageInput,
		Code:    CodeInputInvalid,
		Message: message,
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
