package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"miftah-backend/internal/middleware"
	"miftah-backend/internal/models"
	"miftah-backend/internal/pipeline"
)

type fakeGenerator struct {
	result *pipeline.Result
	err    *pipeline.Error
	calls  int
}

func (f *fakeGenerator) Generate(ctx context.Context, ownerID uuid.UUID, req pipeline.Request) (*pipeline.Result, *pipeline.Error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeStore struct {
	sets      map[uuid.UUID]*models.StudySet
	cards     map[uuid.UUID][]models.Flashcard
	questions map[uuid.UUID][]models.QuizQuestion
	deleted   []uuid.UUID
	shared    map[uuid.UUID]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sets:      map[uuid.UUID]*models.StudySet{},
		cards:     map[uuid.UUID][]models.Flashcard{},
		questions: map[uuid.UUID][]models.QuizQuestion{},
		shared:    map[uuid.UUID]bool{},
	}
}

func (f *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*models.StudySet, error) {
	set, ok := f.sets[id]
	if !ok {
		return nil, errors.New("no rows in result set")
	}
	return set, nil
}

func (f *fakeStore) ListByOwner(ctx context.Context, ownerID uuid.UUID, setType string) ([]*models.StudySet, error) {
	var out []*models.StudySet
	for _, set := range f.sets {
		if set.OwnerID != ownerID {
			continue
		}
		if setType != "" && set.SetType != setType {
			continue
		}
		out = append(out, set)
	}
	return out, nil
}

func (f *fakeStore) GetFlashcards(ctx context.Context, setID uuid.UUID) ([]models.Flashcard, error) {
	return f.cards[setID], nil
}

func (f *fakeStore) GetQuestions(ctx context.Context, setID uuid.UUID) ([]models.QuizQuestion, error) {
	return f.questions[setID], nil
}

func (f *fakeStore) SetShared(ctx context.Context, id uuid.UUID, shared bool) error {
	f.shared[id] = shared
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	delete(f.sets, id)
	return nil
}

func asUser(req *http.Request, userID uuid.UUID) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	return req.WithContext(ctx)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func multipartBody(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field %s: %v", k, err)
		}
	}
	mw.Close()
	return buf, mw.FormDataContentType()
}

func seedSet(store *fakeStore, owner uuid.UUID, setType string, shared bool) *models.StudySet {
	set := &models.StudySet{
		ID:        uuid.New(),
		OwnerID:   owner,
		SetType:   setType,
		Language:  "en",
		Title:     "Cell biology",
		IsShared:  shared,
		CreatedAt: time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	store.sets[set.ID] = set
	return set
}

func TestGenerate_Success(t *testing.T) {
	owner := uuid.New()
	setID := uuid.New()
	gen := &fakeGenerator{result: &pipeline.Result{
		Set: &models.StudySet{ID: setID, OwnerID: owner, SetType: "flashcards", Language: "en"},
		Flashcards: []models.Flashcard{
			{ID: uuid.New(), StudySetID: setID, Position: 0, Question: "Q", Answer: "A"},
		},
	}}
	h := NewStudySetHandler(gen, newFakeStore(), nil, 0)

	body, contentType := multipartBody(t, map[string]string{
		"set_type":     "flashcards",
		"input_type":   "text",
		"text_content": strings.Repeat("The cell is the basic unit of life. ", 3),
		"count":        "5",
	})
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/study-sets/generate", body), owner)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	h.Generate(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]json.RawMessage
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if _, ok := resp["study_set"]; !ok {
		t.Error("response missing study_set")
	}
	if _, ok := resp["flashcards"]; !ok {
		t.Error("response missing flashcards")
	}
	if gen.calls != 1 {
		t.Errorf("expected one pipeline call, got %d", gen.calls)
	}
}

func TestGenerate_FormValidation(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
	}{
		{"bad set_type", map[string]string{"set_type": "essay", "input_type": "text", "text_content": "x"}},
		{"bad input_type", map[string]string{"set_type": "quiz", "input_type": "audio"}},
		{"count not a number", map[string]string{"set_type": "quiz", "input_type": "text", "text_content": "x", "count": "five"}},
		{"count too large", map[string]string{"set_type": "quiz", "input_type": "text", "text_content": "x", "count": "31"}},
		{"count zero", map[string]string{"set_type": "quiz", "input_type": "text", "text_content": "x", "count": "0"}},
		{"title too long", map[string]string{"set_type": "quiz", "input_type": "text", "text_content": "x", "title": strings.Repeat("t", 201)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gen := &fakeGenerator{}
			h := NewStudySetHandler(gen, newFakeStore(), nil, 0)

			body, contentType := multipartBody(t, tc.fields)
			req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/study-sets/generate", body), uuid.New())
			req.Header.Set("Content-Type", contentType)
			rr := httptest.NewRecorder()

			h.Generate(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rr.Code)
			}
			if gen.calls != 0 {
				t.Errorf("pipeline must not run on invalid form, got %d calls", gen.calls)
			}
		})
	}
}

func TestGenerate_PipelineErrorStatusMapping(t *testing.T) {
	tests := []struct {
		code       string
		stage      pipeline.Stage
		wantStatus int
	}{
		{pipeline.CodeInputInvalid, pipeline.StageInput, http.StatusBadRequest},
		{pipeline.CodeOCRSuspect, pipeline.StageExtraction, http.StatusUnprocessableEntity},
		{pipeline.CodeExtractionFailed, pipeline.StageExtraction, http.StatusUnprocessableEntity},
		{pipeline.CodeServiceError, pipeline.StageGeneration, http.StatusBadGateway},
		{pipeline.CodeMalformedResponse, pipeline.StageValidation, http.StatusBadGateway},
		{pipeline.CodeSchemaViolation, pipeline.StageValidation, http.StatusBadGateway},
		{pipeline.CodePersistenceFailed, pipeline.StagePersistence, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			gen := &fakeGenerator{err: &pipeline.Error{Stage: tc.stage, Code: tc.code, Message: "m"}}
			h := NewStudySetHandler(gen, newFakeStore(), nil, 0)

			body, contentType := multipartBody(t, map[string]string{
				"set_type":     "flashcards",
				"input_type":   "text",
				"text_content": "some text",
			})
			req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/study-sets/generate", body), uuid.New())
			req.Header.Set("Content-Type", contentType)
			rr := httptest.NewRecorder()

			h.Generate(rr, req)

			if rr.Code != tc.wantStatus {
				t.Errorf("expected %d, got %d", tc.wantStatus, rr.Code)
			}
			var resp models.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if resp.Error.Code != tc.code {
				t.Errorf("expected code %s, got %s", tc.code, resp.Error.Code)
			}
			if resp.Error.Stage != string(tc.stage) {
				t.Errorf("expected stage %s, got %s", tc.stage, resp.Error.Stage)
			}
		})
	}
}

func TestGet_OwnerSeesOwnSet(t *testing.T) {
	store := newFakeStore()
	owner := uuid.New()
	set := seedSet(store, owner, "flashcards", false)
	store.cards[set.ID] = []models.Flashcard{
		{ID: uuid.New(), StudySetID: set.ID, Position: 0, Question: "Q", Answer: "A"},
	}
	h := NewStudySetHandler(&fakeGenerator{}, store, nil, 0)

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/study-sets/"+set.ID.String(), nil), owner)
	req = withURLParam(req, "id", set.ID.String())
	rr := httptest.NewRecorder()

	h.Get(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp map[string]json.RawMessage
	json.NewDecoder(rr.Body).Decode(&resp)
	var isOwner bool
	json.Unmarshal(resp["is_owner"], &isOwner)
	if !isOwner {
		t.Error("owner should be flagged as owner")
	}
}

func TestGet_NonOwnerForbiddenWhenNotShared(t *testing.T) {
	store := newFakeStore()
	set := seedSet(store, uuid.New(), "quiz", false)
	store.questions[set.ID] = []models.QuizQuestion{
		{ID: uuid.New(), StudySetID: set.ID, Question: "Q", Options: []string{"a", "b", "c", "d"}},
	}
	h := NewStudySetHandler(&fakeGenerator{}, store, nil, 0)

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/study-sets/"+set.ID.String(), nil), uuid.New())
	req = withURLParam(req, "id", set.ID.String())
	rr := httptest.NewRecorder()

	h.Get(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	body := rr.Body.String()
	if strings.Contains(body, "\"questions\"") || strings.Contains(body, "Options") {
		t.Error("forbidden response must not leak set contents")
	}
	var resp models.ErrorResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp.Error.Code != "FORBIDDEN" {
		t.Errorf("expected FORBIDDEN, got %s", resp.Error.Code)
	}
}

func TestGet_NonOwnerAllowedWhenShared(t *testing.T) {
	store := newFakeStore()
	set := seedSet(store, uuid.New(), "flashcards", true)
	h := NewStudySetHandler(&fakeGenerator{}, store, nil, 0)

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/study-sets/"+set.ID.String(), nil), uuid.New())
	req = withURLParam(req, "id", set.ID.String())
	rr := httptest.NewRecorder()

	h.Get(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp map[string]json.RawMessage
	json.NewDecoder(rr.Body).Decode(&resp)
	var isOwner bool
	json.Unmarshal(resp["is_owner"], &isOwner)
	if isOwner {
		t.Error("non-owner must not be flagged as owner")
	}
}

func TestGet_UnknownIDIs404(t *testing.T) {
	h := NewStudySetHandler(&fakeGenerator{}, newFakeStore(), nil, 0)

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/study-sets/x", nil), uuid.New())
	req = withURLParam(req, "id", uuid.New().String())
	rr := httptest.NewRecorder()

	h.Get(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestSummary_OwnerOnly(t *testing.T) {
	store := newFakeStore()
	set := seedSet(store, uuid.New(), "flashcards", true)
	h := NewStudySetHandler(&fakeGenerator{}, store, nil, 0)

	// Shared or not, the summary view is owner-scoped.
	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/study-sets/x/summary", nil), uuid.New())
	req = withURLParam(req, "id", set.ID.String())
	rr := httptest.NewRecorder()

	h.Summary(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for non-owner, got %d", rr.Code)
	}
}

func TestSummary_Shape(t *testing.T) {
	store := newFakeStore()
	owner := uuid.New()
	set := seedSet(store, owner, "quiz", false)
	set.Title = ""
	longQuestion := strings.Repeat("q", 150)
	store.questions[set.ID] = []models.QuizQuestion{
		{ID: uuid.New(), StudySetID: set.ID, Position: 0, Question: longQuestion, Options: []string{"a", "b", "c", "d"}},
		{ID: uuid.New(), StudySetID: set.ID, Position: 1, Question: "second", Options: []string{"a", "b", "c", "d"}},
	}
	h := NewStudySetHandler(&fakeGenerator{}, store, nil, 0)

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/study-sets/x/summary", nil), owner)
	req = withURLParam(req, "id", set.ID.String())
	rr := httptest.NewRecorder()

	h.Summary(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var summary models.StudySetSummary
	if err := json.NewDecoder(rr.Body).Decode(&summary); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	if summary.ItemCount != 2 {
		t.Errorf("expected item count 2, got %d", summary.ItemCount)
	}
	if summary.Title != "Untitled" {
		t.Errorf("expected placeholder title, got %q", summary.Title)
	}
	if len([]rune(summary.Preview)) != 100 {
		t.Errorf("expected preview capped at 100 chars, got %d", len([]rune(summary.Preview)))
	}
	if summary.CreatedAt != "2025-03-14" {
		t.Errorf("expected date-only created_at, got %q", summary.CreatedAt)
	}
}

func TestToggleShare_FlipsFlag(t *testing.T) {
	store := newFakeStore()
	owner := uuid.New()
	set := seedSet(store, owner, "flashcards", false)
	h := NewStudySetHandler(&fakeGenerator{}, store, nil, 0)

	req := asUser(httptest.NewRequest(http.MethodPut, "/api/v1/study-sets/x/share", nil), owner)
	req = withURLParam(req, "id", set.ID.String())
	rr := httptest.NewRecorder()

	h.ToggleShare(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if shared, ok := store.shared[set.ID]; !ok || !shared {
		t.Error("expected sharing flag to flip to true")
	}
}

func TestToggleShare_NonOwnerForbidden(t *testing.T) {
	store := newFakeStore()
	set := seedSet(store, uuid.New(), "flashcards", true)
	h := NewStudySetHandler(&fakeGenerator{}, store, nil, 0)

	req := asUser(httptest.NewRequest(http.MethodPut, "/api/v1/study-sets/x/share", nil), uuid.New())
	req = withURLParam(req, "id", set.ID.String())
	rr := httptest.NewRecorder()

	h.ToggleShare(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rr.Code)
	}
	if _, changed := store.shared[set.ID]; changed {
		t.Error("sharing flag must not change")
	}
}

func TestDelete_OwnerOnly(t *testing.T) {
	store := newFakeStore()
	owner := uuid.New()
	set := seedSet(store, owner, "quiz", false)
	h := NewStudySetHandler(&fakeGenerator{}, store, nil, 0)

	req := asUser(httptest.NewRequest(http.MethodDelete, "/api/v1/study-sets/x", nil), uuid.New())
	req = withURLParam(req, "id", set.ID.String())
	rr := httptest.NewRecorder()

	h.Delete(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for non-owner, got %d", rr.Code)
	}
	if len(store.deleted) != 0 {
		t.Error("nothing may be deleted by a non-owner")
	}

	req = asUser(httptest.NewRequest(http.MethodDelete, "/api/v1/study-sets/x", nil), owner)
	req = withURLParam(req, "id", set.ID.String())
	rr = httptest.NewRecorder()

	h.Delete(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200 for owner, got %d", rr.Code)
	}
	if len(store.deleted) != 1 || store.deleted[0] != set.ID {
		t.Errorf("expected set %s deleted, got %v", set.ID, store.deleted)
	}
}

func TestList_FiltersByType(t *testing.T) {
	store := newFakeStore()
	owner := uuid.New()
	seedSet(store, owner, "flashcards", false)
	seedSet(store, owner, "quiz", false)
	seedSet(store, uuid.New(), "quiz", false)
	h := NewStudySetHandler(&fakeGenerator{}, store, nil, 0)

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/study-sets?type=quiz", nil), owner)
	rr := httptest.NewRecorder()

	h.List(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp struct {
		StudySets []models.StudySet `json:"study_sets"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.StudySets) != 1 {
		t.Fatalf("expected 1 quiz set for owner, got %d", len(resp.StudySets))
	}
	if resp.StudySets[0].SetType != "quiz" {
		t.Errorf("expected quiz set, got %q", resp.StudySets[0].SetType)
	}
}
