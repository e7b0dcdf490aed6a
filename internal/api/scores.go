package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/rumbidzaim/habitpulse-backend/internal/achievement"
	"github.com/rumbidzaim/habitpulse-backend/internal/store"
)

type submitScoresRequest struct {
	Date            string `json:"date"`
	DietScore       int    `json:"diet_score"`
	ExerciseScore   int    `json:"exercise_score"`
	MedicationScore int    `json:"medication_score"`
}

type submitScoresResponse struct {
	Success                 bool                `json:"success"`
	Message                 string              `json:"message"`
	Data                    store.Submission    `json:"data"`
	NewBadges               []achievement.Badge `json:"newBadges"`
	ProactiveSuggestionSent bool                `json:"proactiveSuggestionSent"`
}

// handleSubmitScores persists a daily self-score entry and runs the feedback
// pipeline on the freshly read-back history. The save is committed before the
// pipeline runs, so pipeline failures never surface as submission failures.
func (s *Server) handleSubmitScores(w http.ResponseWriter, r *http.Request) {
	patientID, err := patientIDFromContext(r.Context())
	if err != nil {
		s.respondInternalErr(w, err)
		return
	}

	var req submitScoresRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, http.StatusBadRequest, "invalid request body")
		return
	}

	for _, score := range []int{req.DietScore, req.ExerciseScore, req.MedicationScore} {
		if score < 1 || score > 10 {
			respondErr(w, http.StatusBadRequest, "scores must be between 1 and 10")
			return
		}
	}

	scoreDate := time.Now().UTC().Truncate(24 * time.Hour)
	if req.Date != "" {
		scoreDate, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			respondErr(w, http.StatusBadRequest, "date must be formatted as YYYY-MM-DD")
			return
		}
	}

	submission, history, err := s.store.RecordSubmission(r.Context(), store.RecordSubmissionParams{
		PatientID:       patientID,
		Date:            scoreDate,
		DietScore:       req.DietScore,
		ExerciseScore:   req.ExerciseScore,
		MedicationScore: req.MedicationScore,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateSubmission) {
			respondErr(w, http.StatusConflict, "a score entry already exists for this date")
			return
		}
		s.respondInternalErr(w, err)
		return
	}

	outcome := s.pipeline.Run(r.Context(), patientID, history)

	newBadges := outcome.NewBadges
	if newBadges == nil {
		newBadges = []achievement.Badge{}
	}

	respond(w, http.StatusCreated, submitScoresResponse{
		Success:                 true,
		Message:                 "scores recorded",
		Data:                    submission,
		NewBadges:               newBadges,
		ProactiveSuggestionSent: outcome.ProactiveSuggestionSent,
	})
}

func (s *Server) handleListScores(w http.ResponseWriter, r *http.Request) {
	patientID, err := patientIDFromContext(r.Context())
	if err != nil {
		s.respondInternalErr(w, err)
		return
	}

	submissions, err := s.store.GetSubmissions(r.Context(), patientID)
	if err != nil {
		s.respondInternalErr(w, err)
		return
	}
	if submissions == nil {
		submissions = []store.Submission{}
	}

	respond(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    submissions,
	})
}
