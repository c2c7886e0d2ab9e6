package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FlashcardItem is one validated entry of a flashcard artifact.
type FlashcardItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QuizItem is one validated entry of a quiz artifact. Options always
// has exactly four entries and CorrectIndex is within [0,3].
type QuizItem struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
}

// Artifact is the validated in-memory result of one generation request.
// Exactly one of Flashcards/Questions is populated, matching Kind.
type Artifact struct {
	Kind       Kind
	Language   Language
	Flashcards []FlashcardItem
	Questions  []QuizItem
}

// Items reports how many entries the artifact carries.
func (a *Artifact) Items() int {
	if a.Kind == KindQuiz {
		return len(a.Questions)
	}
	return len(a.Flashcards)
}

// stripCodeFence removes markdown code-block wrapping that models
// sometimes add despite being told not to. The opening marker line
// (``` or ```json) and a trailing ``` are dropped; anything else passes
// through untouched.
func stripCodeFence(raw string) string {
	cleaned := strings.TrimSpace(raw)

	if strings.HasPrefix(cleaned, "```") {
		if idx := strings.Index(cleaned, "\n"); idx != -1 {
			cleaned = cleaned[idx+1:]
		}
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	}

	return strings.TrimSpace(cleaned)
}

// ParseArtifact normalizes and validates a raw service response into a
// typed artifact. Validation is all-or-nothing: one malformed entry
// rejects the whole batch, because a partially accepted batch would
// break the positional ordering the persistence layer relies on.
// Unknown extra fields in the response are ignored.
func ParseArtifact(kind Kind, lang Language, raw string) (*Artifact, *Error) {
	cleaned := stripCodeFence(raw)

	if kind == KindQuiz {
		questions, err := parseQuiz(cleaned, lang)
		if err != nil {
			return nil, err
		}
		return &Artifact{Kind: kind, Language: lang, Questions: questions}, nil
	}

	flashcards, err := parseFlashcards(cleaned, lang)
	if err != nil {
		return nil, err
	}
	return &Artifact{Kind: kind, Language: lang, Flashcards: flashcards}, nil
}

// Pointer fields so a missing key is distinguishable from an empty
// value, the way the schema contract requires.
type rawFlashcard struct {
	Question *string `json:"question"`
	Answer   *string `json:"answer"`
}

type rawQuizQuestion struct {
	Question     *string   `json:"question"`
	Options      *[]string `json:"options"`
	CorrectIndex *int      `json:"correctIndex"`
	Explanation  *string   `json:"explanation"`
}

func parseFlashcards(cleaned string, lang Language) ([]FlashcardItem, *Error) {
	var payload struct {
		Flashcards *[]rawFlashcard `json:"flashcards"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, malformed(lang, err)
	}

	if payload.Flashcards == nil {
		return nil, schemaViolation(lang, "missing 'flashcards' key in response")
	}
	cards := *payload.Flashcards
	if len(cards) == 0 {
		return nil, schemaViolation(lang, "'flashcards' is empty")
	}

	items := make([]FlashcardItem, len(cards))
	for i, card := range cards {
		if card.Question == nil || card.Answer == nil {
			return nil, schemaViolation(lang, fmt.Sprintf("flashcard %d missing question or answer", i))
		}
		if strings.TrimSpace(*card.Question) == "" || strings.TrimSpace(*card.Answer) == "" {
			return nil, schemaViolation(lang, fmt.Sprintf("flashcard %d has an empty question or answer", i))
		}
		items[i] = FlashcardItem{Question: *card.Question, Answer: *card.Answer}
	}

	return items, nil
}

func parseQuiz(cleaned string, lang Language) ([]QuizItem, *Error) {
	var payload struct {
		Questions *[]rawQuizQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, malformed(lang, err)
	}

	if payload.Questions == nil {
		return nil, schemaViolation(lang, "missing 'questions' key in response")
	}
	questions := *payload.Questions
	if len(questions) == 0 {
		return nil, schemaViolation(lang, "'questions' is empty")
	}

	items := make([]QuizItem, len(questions))
	for i, q := range questions {
		if q.Question == nil {
			return nil, schemaViolation(lang, fmt.Sprintf("question %d missing 'question' field", i))
		}
		if q.Options == nil || len(*q.Options) != 4 {
			return nil, schemaViolation(lang, fmt.Sprintf("question %d must have exactly 4 options", i))
		}
		if q.CorrectIndex == nil || *q.CorrectIndex < 0 || *q.CorrectIndex > 3 {
			return nil, schemaViolation(lang, fmt.Sprintf("question %d has invalid correctIndex", i))
		}
		if q.Explanation == nil {
			return nil, schemaViolation(lang, fmt.Sprintf("question %d missing explanation", i))
		}
		items[i] = QuizItem{
			Question:     *q.Question,
			Options:      *q.Options,
			CorrectIndex: *q.CorrectIndex,
			Explanation:  *q.Explanation,
		}
	}

	return items, nil
}

func malformed(lang Language, err error) *Error {
	return &Error{
		Stage:   StageValidation,
		Code:    CodeMalformedResponse,
		Message: msgMalformedResponse(lang, err),
		Err:     err,
	}
}

func schemaViolation(lang Language, detail string) *Error {
	return &Error{
		Stage:   StageValidation,
		Code:    CodeSchemaViolation,
		Message: msgSchemaViolation(lang, detail),
		Err:     fmt.Errorf("%s", detail),
	}
}
