package models

import (
	"time"

	"github.com/google/uuid"
)

// StudySet is the persisted container for one generated artifact.
// Items are write-once: they are created together with the set and
// never mutated or reordered afterwards.
type StudySet struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	SetType    string    `json:"set_type"` // "flashcards" | "quiz"
	Language   string    `json:"language"` // "ar" | "en"
	Title      string    `json:"title"`
	SourceText string    `json:"-"`
	IsShared   bool      `json:"is_shared"`
	CreatedAt  time.Time `json:"created_at"`
}

type Flashcard struct {
	ID         uuid.UUID `json:"id"`
	StudySetID uuid.UUID `json:"study_set_id"`
	Position   int       `json:"position"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
}

type QuizQuestion struct {
	ID           uuid.UUID `json:"id"`
	StudySetID   uuid.UUID `json:"study_set_id"`
	Position     int       `json:"position"`
	Question     string    `json:"question"`
	Options      []string  `json:"options"`
	CorrectIndex int       `json:"correct_index"`
	Explanation  string    `json:"explanation"`
}

// StudySetSummary is the lightweight cross-component view of a set
// (used by the sharing picker, cached in Redis).
type StudySetSummary struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Language  string    `json:"language"`
	Title     string    `json:"title"`
	ItemCount int       `json:"item_count"`
	CreatedAt string    `json:"created_at"` // YYYY-MM-DD
	IsShared  bool      `json:"is_shared"`
	Preview   string    `json:"preview,omitempty"`
}
