package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rumbidzaim/habitpulse-backend/internal/achievement"
	"github.com/rumbidzaim/habitpulse-backend/internal/ai"
	"github.com/rumbidzaim/habitpulse-backend/internal/feedback"
	"github.com/rumbidzaim/habitpulse-backend/internal/notify"
	"github.com/rumbidzaim/habitpulse-backend/internal/store"
	"github.com/rumbidzaim/habitpulse-backend/internal/trend"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ─── Stubs ───────────────────────────────────────────────────────────────────

type stubStore struct {
	mu          sync.Mutex
	submissions map[uuid.UUID][]store.Submission
	badges      map[uuid.UUID][]achievement.Badge
	recordErr   error
	listErr     error
}

func newStubStore() *stubStore {
	return &stubStore{
		submissions: make(map[uuid.UUID][]store.Submission),
		badges:      make(map[uuid.UUID][]achievement.Badge),
	}
}

func (s *stubStore) RecordSubmission(_ context.Context, p store.RecordSubmissionParams) (store.Submission, []trend.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recordErr != nil {
		return store.Submission{}, nil, s.recordErr
	}
	for _, existing := range s.submissions[p.PatientID] {
		if existing.Date.Equal(p.Date) {
			return store.Submission{}, nil, store.ErrDuplicateSubmission
		}
	}

	sub := store.Submission{
		ID:              uuid.New(),
		PatientID:       p.PatientID,
		Date:            p.Date,
		DietScore:       p.DietScore,
		ExerciseScore:   p.ExerciseScore,
		MedicationScore: p.MedicationScore,
		CreatedAt:       time.Now(),
	}
	s.submissions[p.PatientID] = append(s.submissions[p.PatientID], sub)

	var history []trend.Entry
	for _, stored := range s.submissions[p.PatientID] {
		history = append(history, trend.Entry{
			Date:       stored.Date,
			Diet:       stored.DietScore,
			Exercise:   stored.ExerciseScore,
			Medication: stored.MedicationScore,
		})
	}
	return sub, history, nil
}

func (s *stubStore) GetSubmissions(_ context.Context, patientID uuid.UUID) ([]store.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.submissions[patientID], nil
}

func (s *stubStore) GetBadges(_ context.Context, patientID uuid.UUID) ([]achievement.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.badges[patientID], nil
}

type stubPipeline struct {
	mu      sync.Mutex
	calls   int
	history []trend.Entry
	outcome feedback.Outcome
}

func (p *stubPipeline) Run(_ context.Context, _ uuid.UUID, history []trend.Entry) feedback.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.history = history
	return p.outcome
}

func newTestServer(st SubmissionStore, pipeline Pipeline) http.Handler {
	return NewServer(st, pipeline, AllowAllVerifier{}, Config{Env: "development"}, discardLogger())
}

func submitBody(t *testing.T, date string, diet, exercise, medication int) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(submitScoresRequest{
		Date:            date,
		DietScore:       diet,
		ExerciseScore:   exercise,
		MedicationScore: medication,
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return bytes.NewReader(body)
}

func doSubmit(handler http.Handler, patientID uuid.UUID, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/patients/"+patientID.String()+"/scores", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Patient-Token", "test-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// ─── Tests ───────────────────────────────────────────────────────────────────

func TestSubmitScores(t *testing.T) {
	patientID := uuid.New()

	t.Run("valid submission is persisted and pipeline runs", func(t *testing.T) {
		st := newStubStore()
		pipeline := &stubPipeline{outcome: feedback.Outcome{ProactiveSuggestionSent: true}}
		handler := newTestServer(st, pipeline)

		rec := doSubmit(handler, patientID, submitBody(t, "2026-04-01", 7, 8, 9))

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}

		var resp submitScoresResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		if !resp.Success {
			t.Error("success = false, want true")
		}
		if !resp.ProactiveSuggestionSent {
			t.Error("proactiveSuggestionSent = false, want true")
		}
		if resp.NewBadges == nil {
			t.Error("newBadges is null, want empty array")
		}
		if resp.Data.DietScore != 7 || resp.Data.ExerciseScore != 8 || resp.Data.MedicationScore != 9 {
			t.Errorf("data scores = %d/%d/%d, want 7/8/9",
				resp.Data.DietScore, resp.Data.ExerciseScore, resp.Data.MedicationScore)
		}
		if pipeline.calls != 1 {
			t.Errorf("pipeline calls = %d, want 1", pipeline.calls)
		}
		if len(pipeline.history) != 1 {
			t.Errorf("pipeline history length = %d, want 1", len(pipeline.history))
		}
	})

	t.Run("out of range scores are rejected", func(t *testing.T) {
		st := newStubStore()
		pipeline := &stubPipeline{}
		handler := newTestServer(st, pipeline)

		for _, scores := range [][3]int{{0, 5, 5}, {5, 11, 5}, {5, 5, -1}} {
			rec := doSubmit(handler, patientID, submitBody(t, "2026-04-01", scores[0], scores[1], scores[2]))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("scores %v: status = %d, want %d", scores, rec.Code, http.StatusBadRequest)
			}
		}
		if pipeline.calls != 0 {
			t.Errorf("pipeline calls = %d, want 0", pipeline.calls)
		}
	})

	t.Run("malformed date is rejected", func(t *testing.T) {
		handler := newTestServer(newStubStore(), &stubPipeline{})

		rec := doSubmit(handler, patientID, submitBody(t, "01/04/2026", 5, 5, 5))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("duplicate date returns conflict", func(t *testing.T) {
		st := newStubStore()
		handler := newTestServer(st, &stubPipeline{})

		first := doSubmit(handler, patientID, submitBody(t, "2026-04-01", 5, 5, 5))
		if first.Code != http.StatusCreated {
			t.Fatalf("first submit status = %d, want %d", first.Code, http.StatusCreated)
		}

		second := doSubmit(handler, patientID, submitBody(t, "2026-04-01", 6, 6, 6))
		if second.Code != http.StatusConflict {
			t.Errorf("second submit status = %d, want %d", second.Code, http.StatusConflict)
		}
	})

	t.Run("store failure returns 500 and skips pipeline", func(t *testing.T) {
		st := newStubStore()
		st.recordErr = fmt.Errorf("connection reset")
		pipeline := &stubPipeline{}
		handler := newTestServer(st, pipeline)

		rec := doSubmit(handler, patientID, submitBody(t, "2026-04-01", 5, 5, 5))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
		}
		if pipeline.calls != 0 {
			t.Errorf("pipeline calls = %d, want 0", pipeline.calls)
		}
	})

	t.Run("missing token is unauthorized", func(t *testing.T) {
		handler := newTestServer(newStubStore(), &stubPipeline{})

		req := httptest.NewRequest(http.MethodPost, "/api/patients/"+patientID.String()+"/scores",
			submitBody(t, "2026-04-01", 5, 5, 5))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("invalid patient id is rejected", func(t *testing.T) {
		handler := newTestServer(newStubStore(), &stubPipeline{})

		req := httptest.NewRequest(http.MethodPost, "/api/patients/not-a-uuid/scores",
			submitBody(t, "2026-04-01", 5, 5, 5))
		req.Header.Set("X-Patient-Token", "test-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func TestListScores(t *testing.T) {
	patientID := uuid.New()
	st := newStubStore()
	handler := newTestServer(st, &stubPipeline{})

	rec := doSubmit(handler, patientID, submitBody(t, "2026-04-01", 5, 6, 7))
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/patients/"+patientID.String()+"/scores", nil)
	req.Header.Set("X-Patient-Token", "test-token")
	listRec := httptest.NewRecorder()
	handler.ServeHTTP(listRec, req)

	if listRec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", listRec.Code, http.StatusOK)
	}

	var resp struct {
		Success bool               `json:"success"`
		Data    []store.Submission `json:"data"`
	}
	if err := json.Unmarshal(listRec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Data) != 1 {
		t.Errorf("data length = %d, want 1", len(resp.Data))
	}
}

func TestListBadges(t *testing.T) {
	patientID := uuid.New()
	st := newStubStore()
	st.badges[patientID] = []achievement.Badge{{
		ID:         uuid.New(),
		PatientID:  patientID,
		Name:       "Dietary Discipline",
		Tier:       achievement.TierBronze,
		EarnedDate: time.Now(),
	}}
	handler := newTestServer(st, &stubPipeline{})

	req := httptest.NewRequest(http.MethodGet, "/api/patients/"+patientID.String()+"/badges", nil)
	req.Header.Set("X-Patient-Token", "test-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Success bool                `json:"success"`
		Data    []achievement.Badge `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].Tier != achievement.TierBronze {
		t.Errorf("unexpected badges payload: %+v", resp.Data)
	}
}

// ─── End to end with the real pipeline ───────────────────────────────────────

type e2eRepo struct {
	mu     sync.Mutex
	badges []achievement.Badge
}

func (r *e2eRepo) GetBadges(context.Context, uuid.UUID) ([]achievement.Badge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.badges, nil
}

func (r *e2eRepo) InsertBadge(_ context.Context, b achievement.Badge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.badges = append(r.badges, b)
	return nil
}

func (r *e2eRepo) GetPatient(context.Context, uuid.UUID) (store.Patient, error) {
	return store.Patient{}, store.ErrPatientNotFound
}

func (r *e2eRepo) GetCarePlan(context.Context, uuid.UUID) (store.CarePlan, error) {
	return store.CarePlan{}, nil
}

type e2eNotifier struct {
	mu       sync.Mutex
	payloads []notify.Payload
}

func (n *e2eNotifier) Send(_ uuid.UUID, p notify.Payload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payloads = append(n.payloads, p)
}

type e2eGenerator struct{}

func (e2eGenerator) Generate(_ context.Context, req ai.SuggestionRequest) (string, error) {
	return ai.StaticSuggestion(req.Trend.Type, req.Trend.Category), nil
}

// TestSubmitScoresTriggersSuggestion drives the full submit path with the real
// coordinator: six straight days of strong medication scores should produce a
// positive streak and exactly one proactive message.
func TestSubmitScoresTriggersSuggestion(t *testing.T) {
	patientID := uuid.New()
	st := newStubStore()
	repo := &e2eRepo{}
	notifier := &e2eNotifier{}

	coordinator := feedback.New(
		repo,
		achievement.NewEngine(achievement.DefaultCatalog()),
		e2eGenerator{},
		notifier,
		time.Second,
		discardLogger(),
	)
	handler := newTestServer(st, coordinator)

	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	var lastResp submitScoresResponse
	for day := 0; day < 6; day++ {
		date := base.AddDate(0, 0, day).Format("2006-01-02")
		medication := 9
		if day == 0 {
			medication = 6
		}
		rec := doSubmit(handler, patientID, submitBody(t, date, 7, 7, medication))
		if rec.Code != http.StatusCreated {
			t.Fatalf("day %d: status = %d, body %s", day, rec.Code, rec.Body.String())
		}
		lastResp = submitScoresResponse{}
		if err := json.Unmarshal(rec.Body.Bytes(), &lastResp); err != nil {
			t.Fatalf("day %d: unmarshal: %v", day, err)
		}
	}

	if !lastResp.ProactiveSuggestionSent {
		t.Error("final submission: proactiveSuggestionSent = false, want true")
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.payloads) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(notifier.payloads))
	}
	payload := notifier.payloads[0]
	if payload.TrendType != string(trend.TypePositiveStreak) {
		t.Errorf("trend type = %q, want %q", payload.TrendType, trend.TypePositiveStreak)
	}
	if payload.Category != string(trend.CategoryMedication) {
		t.Errorf("category = %q, want %q", payload.Category, trend.CategoryMedication)
	}
}
