package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"miftah-backend/internal/middleware"
	"miftah-backend/internal/models"
	"miftah-backend/internal/pipeline"
)

const (
	summaryCacheTTL    = 5 * time.Minute
	maxTitleLength     = 200
	defaultItemCount   = 10
	maxPreviewChars    = 100
	multipartFormLimit = pipeline.MaxDocumentSize + 1<<20
)

// Generator runs the study set pipeline. Satisfied by
// *pipeline.Service; tests substitute their own.
type Generator interface {
	Generate(ctx context.Context, ownerID uuid.UUID, req pipeline.Request) (*pipeline.Result, *pipeline.Error)
}

// StudySetStore is the read/delete side of the persistence boundary.
// Satisfied by *repository.StudySetRepo.
type StudySetStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.StudySet, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, setType string) ([]*models.StudySet, error)
	GetFlashcards(ctx context.Context, setID uuid.UUID) ([]models.Flashcard, error)
	GetQuestions(ctx context.Context, setID uuid.UUID) ([]models.QuizQuestion, error)
	SetShared(ctx context.Context, id uuid.UUID, shared bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type StudySetHandler struct {
	generator  Generator
	store      StudySetStore
	redis      *redis.Client
	dailyQuota int
}

func NewStudySetHandler(generator Generator, store StudySetStore, redisClient *redis.Client, dailyQuota int) *StudySetHandler {
	return &StudySetHandler{
		generator:  generator,
		store:      store,
		redis:      redisClient,
		dailyQuota: dailyQuota,
	}
}

// Generate runs the full pipeline synchronously and returns the
// created set with its items, or a localized stage error.
func (h *StudySetHandler) Generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, multipartFormLimit)
	if err := r.ParseMultipartForm(multipartFormLimit); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid multipart form", r))
		return
	}

	setType := r.FormValue("set_type")
	if setType != string(pipeline.KindFlashcards) && setType != string(pipeline.KindQuiz) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "set_type must be flashcards or quiz", r))
		return
	}

	count := defaultItemCount
	if v := r.FormValue("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "count must be a number", r))
			return
		}
		count = n
	}
	if count < pipeline.MinItemCount || count > pipeline.MaxItemCount {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR",
			fmt.Sprintf("count must be between %d and %d", pipeline.MinItemCount, pipeline.MaxItemCount), r))
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if len([]rune(title)) > maxTitleLength {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "title must be at most 200 characters", r))
		return
	}

	req := pipeline.Request{
		Kind:  pipeline.Kind(setType),
		Count: count,
		Title: title,
	}

	switch r.FormValue("input_type") {
	case "pdf":
		document, errCode, errMsg := readUploadedPDF(r)
		if errCode != "" {
			writeJSON(w, http.StatusBadRequest, errorResp(errCode, errMsg, r))
			return
		}
		req.Document = document
	case "text":
		req.Text = r.FormValue("text_content")
	default:
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "input_type must be text or pdf", r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	if !h.allowGeneration(r.Context(), userID) {
		writeJSON(w, http.StatusTooManyRequests, errorResp("QUOTA_EXCEEDED", "Daily generation limit reached", r))
		return
	}

	result, perr := h.generator.Generate(r.Context(), userID, req)
	if perr != nil {
		log.Printf("generation failed for user %s at stage %s: %v", userID, perr.Stage, perr)
		writePipelineError(w, r, perr)
		return
	}

	resp := map[string]interface{}{"study_set": result.Set}
	if result.Set.SetType == string(pipeline.KindQuiz) {
		resp["questions"] = result.Questions
	} else {
		resp["flashcards"] = result.Flashcards
	}
	writeJSON(w, http.StatusCreated, resp)
}

// readUploadedPDF enforces the upload shape rules (.pdf extension,
// 10 MB cap) before any bytes reach the pipeline.
func readUploadedPDF(r *http.Request) ([]byte, string, string) {
	file, header, err := r.FormFile("pdf_file")
	if err != nil {
		return nil, "VALIDATION_ERROR", "No PDF file provided"
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		return nil, "VALIDATION_ERROR", "Only .pdf files are accepted"
	}
	if header.Size > pipeline.MaxDocumentSize {
		return nil, "FILE_TOO_LARGE", "File size exceeds the 10MB limit"
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "VALIDATION_ERROR", "Failed to read uploaded file"
	}
	return data, "", ""
}

func (h *StudySetHandler) List(w http.ResponseWriter, r *http.Request) {
	setType := r.URL.Query().Get("type")
	if setType != "" && setType != string(pipeline.KindFlashcards) && setType != string(pipeline.KindQuiz) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "type must be flashcards or quiz", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	sets, err := h.store.ListByOwner(r.Context(), userID, setType)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch study sets", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"study_sets": sets})
}

// Get returns a set with its items. The owner can always view; anyone
// else only when the set is shared.
func (h *StudySetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid study set ID", r))
		return
	}

	set, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Study set not found", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	if set.OwnerID != userID && !set.IsShared {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN",
			pipeline.MsgForbidden(pipeline.Language(set.Language)), r))
		return
	}

	resp := map[string]interface{}{
		"study_set": set,
		"is_owner":  set.OwnerID == userID,
	}

	if set.SetType == string(pipeline.KindQuiz) {
		questions, err := h.store.GetQuestions(r.Context(), id)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch questions", r))
			return
		}
		resp["questions"] = questions
	} else {
		cards, err := h.store.GetFlashcards(r.Context(), id)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch flashcards", r))
			return
		}
		resp["flashcards"] = cards
	}

	writeJSON(w, http.StatusOK, resp)
}

// Summary returns the lightweight owner-only view used by the sharing
// picker, cached in Redis.
func (h *StudySetHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid study set ID", r))
		return
	}

	set, err := h.store.GetByID(r.Context(), id)
	if err != nil || set.OwnerID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Study set not found", r))
		return
	}

	if h.redis != nil {
		if cached, err := h.redis.Get(r.Context(), summaryCacheKey(id)).Result(); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(cached))
			return
		}
	}

	summary, err := h.buildSummary(r.Context(), set)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to build summary", r))
		return
	}

	payload, _ := json.Marshal(summary)
	if h.redis != nil {
		h.redis.Set(r.Context(), summaryCacheKey(id), payload, summaryCacheTTL)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

func (h *StudySetHandler) buildSummary(ctx context.Context, set *models.StudySet) (*models.StudySetSummary, error) {
	summary := &models.StudySetSummary{
		ID:        set.ID,
		Type:      set.SetType,
		Language:  set.Language,
		Title:     set.Title,
		CreatedAt: set.CreatedAt.Format("2006-01-02"),
		IsShared:  set.IsShared,
	}
	if summary.Title == "" {
		summary.Title = pipeline.UntitledPlaceholder(pipeline.Language(set.Language))
	}

	if set.SetType == string(pipeline.KindQuiz) {
		questions, err := h.store.GetQuestions(ctx, set.ID)
		if err != nil {
			return nil, err
		}
		summary.ItemCount = len(questions)
		if len(questions) > 0 {
			summary.Preview = truncatePreview(questions[0].Question)
		}
	} else {
		cards, err := h.store.GetFlashcards(ctx, set.ID)
		if err != nil {
			return nil, err
		}
		summary.ItemCount = len(cards)
		if len(cards) > 0 {
			summary.Preview = truncatePreview(cards[0].Question)
		}
	}

	return summary, nil
}

// ToggleShare flips the sharing flag. Owner only.
func (h *StudySetHandler) ToggleShare(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid study set ID", r))
		return
	}

	set, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Study set not found", r))
		return
	}
	if set.OwnerID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN",
			pipeline.MsgForbidden(pipeline.Language(set.Language)), r))
		return
	}

	if err := h.store.SetShared(r.Context(), id, !set.IsShared); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update sharing", r))
		return
	}
	h.invalidateSummary(r.Context(), id)

	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "is_shared": !set.IsShared})
}

// Delete hard-deletes a set and, via cascade, all its items. Owner
// only; anyone else gets the same 404 as a missing set.
func (h *StudySetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid study set ID", r))
		return
	}

	set, err := h.store.GetByID(r.Context(), id)
	if err != nil || set.OwnerID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Study set not found", r))
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete study set", r))
		return
	}
	h.invalidateSummary(r.Context(), id)

	writeJSON(w, http.StatusOK, map[string]string{"message": "Study set deleted"})
}

// allowGeneration enforces the per-user daily quota via a Redis
// counter. Fails open when Redis is unavailable; the per-IP limiter
// still applies.
func (h *StudySetHandler) allowGeneration(ctx context.Context, userID uuid.UUID) bool {
	if h.redis == nil || h.dailyQuota <= 0 {
		return true
	}

	key := fmt.Sprintf("quota:generate:%s:%s", userID, time.Now().Format("2006-01-02"))
	count, err := h.redis.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("quota check failed for user %s: %v", userID, err)
		return true
	}
	if count == 1 {
		h.redis.Expire(ctx, key, 24*time.Hour)
	}
	return count <= int64(h.dailyQuota)
}

func (h *StudySetHandler) invalidateSummary(ctx context.Context, id uuid.UUID) {
	if h.redis != nil {
		h.redis.Del(ctx, summaryCacheKey(id))
	}
}

func summaryCacheKey(id uuid.UUID) string {
	return "studyset:summary:" + id.String()
}

func truncatePreview(s string) string {
	runes := []rune(s)
	if len(runes) <= maxPreviewChars {
		return s
	}
	return string(runes[:maxPreviewChars])
}

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

// writePipelineError maps the pipeline's classified failures onto HTTP
// statuses, keeping the localized message and the stage tag.
func writePipelineError(w http.ResponseWriter, r *http.Request, perr *pipeline.Error) {
	status := http.StatusInternalServerError
	switch perr.Code {
	case pipeline.CodeInputInvalid:
		status = http.StatusBadRequest
	case pipeline.CodeOCRSuspect, pipeline.CodeExtractionFailed:
		status = http.StatusUnprocessableEntity
	case pipeline.CodeServiceError, pipeline.CodeMalformedResponse, pipeline.CodeSchemaViolation:
		status = http.StatusBadGateway
	case pipeline.CodePersistenceFailed:
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, models.ErrorResponse{
		Error: models.APIError{
			Code:      perr.Code,
			Message:   perr.Message,
			Stage:     string(perr.Stage),
			RequestID: r.Header.Get("X-Request-ID"),
		},
	})
}
