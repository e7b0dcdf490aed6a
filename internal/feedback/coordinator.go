// Package feedback orchestrates the post-submission pipeline: badge awarding,
// trend detection, sanitized suggestion generation, and the decision of which
// single feedback channel the patient sees.
//
// The coordinator never fails the submission that triggered it. Every error on
// this path is logged and degraded: analytics problems shrink the outcome,
// they do not surface to the caller.
package feedback

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rumbidzaim/habitpulse-backend/internal/achievement"
	"github.com/rumbidzaim/habitpulse-backend/internal/ai"
	"github.com/rumbidzaim/habitpulse-backend/internal/notify"
	"github.com/rumbidzaim/habitpulse-backend/internal/phi"
	"github.com/rumbidzaim/habitpulse-backend/internal/store"
	"github.com/rumbidzaim/habitpulse-backend/internal/trend"
)

// ─── DEPENDENCIES ────────────────────────────────────────────────────────────

// Repository is the slice of the store the coordinator reads and writes.
// *store.Store satisfies it; tests inject an in-memory stub.
type Repository interface {
	GetBadges(ctx context.Context, patientID uuid.UUID) ([]achievement.Badge, error)
	InsertBadge(ctx context.Context, b achievement.Badge) error
	GetPatient(ctx context.Context, patientID uuid.UUID) (store.Patient, error)
	GetCarePlan(ctx context.Context, patientID uuid.UUID) (store.CarePlan, error)
}

// Outcome is the contract returned to the submission caller. Exactly one
// feedback channel fires per submission: either a proactive suggestion was
// handed to the notifier (flag true), or the caller should offer its generic
// analysis view (flag false).
type Outcome struct {
	ProactiveSuggestionSent bool                `json:"proactiveSuggestionSent"`
	NewBadges               []achievement.Badge `json:"newBadges"`
}

// ─── COORDINATOR ─────────────────────────────────────────────────────────────

// Coordinator wires the pipeline dependencies. Construct once at startup.
type Coordinator struct {
	repo      Repository
	engine    *achievement.Engine
	generator ai.Generator
	notifier  notify.Sender

	// suggestionTimeout bounds the Generate call. On expiry the static
	// template takes over; the request never waits longer than this.
	suggestionTimeout time.Duration

	logger *slog.Logger
	now    func() time.Time
}

// New constructs a Coordinator.
func New(
	repo Repository,
	engine *achievement.Engine,
	generator ai.Generator,
	notifier notify.Sender,
	suggestionTimeout time.Duration,
	logger *slog.Logger,
) *Coordinator {
	if suggestionTimeout <= 0 {
		suggestionTimeout = 10 * time.Second
	}
	return &Coordinator{
		repo:              repo,
		engine:            engine,
		generator:         generator,
		notifier:          notifier,
		suggestionTimeout: suggestionTimeout,
		logger:            logger,
		now:               time.Now,
	}
}

// promptHistoryWindow is how many recent entries go into the suggestion
// context. The full history feeds the analyzers; the prompt only needs the
// recent shape.
const promptHistoryWindow = 14

// Run executes the pipeline for one committed submission. history must be the
// chronological, committed history including the just-saved row — the store's
// RecordSubmission returns exactly that.
//
// Run never returns an error. A panic anywhere inside degrades the outcome to
// its zero value (no suggestion, no badges reported) and is logged; the score
// save has already succeeded and stays successful.
func (c *Coordinator) Run(ctx context.Context, patientID uuid.UUID, history []trend.Entry) (outcome Outcome) {
	log := c.logger.With("patient_id", patientID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("feedback: pipeline panicked, degrading outcome", "panic", r)
			outcome = Outcome{}
		}
	}()

	// ── 1. Badges — always attempted, failures logged not surfaced ──────────
	existing := c.awardBadges(ctx, patientID, history, &outcome, log)

	// ── 2. Trend ─────────────────────────────────────────────────────────────
	result := trend.Analyze(history)
	if result == nil {
		// No trend: the caller offers the generic analysis view instead.
		return outcome
	}

	log.Info("feedback: trend detected",
		"trend_type", result.Type,
		"category", result.Category,
		"streak", result.StreakLength,
	)

	// ── 3. Sanitize context, generate, push ──────────────────────────────────
	text := c.generateSuggestion(ctx, patientID, *result, history, existing, outcome.NewBadges, log)

	c.notifier.Send(patientID, notify.Payload{
		Type:      notify.TypeProactiveSuggestion,
		Content:   text,
		TrendType: string(result.Type),
		Category:  string(result.Category),
		Timestamp: c.now(),
	})
	// The payload has been handed to the channel; from here on the flag stays
	// true no matter what happens to delivery.
	outcome.ProactiveSuggestionSent = true

	return outcome
}

// awardBadges evaluates the catalog and persists new awards. Returns the
// patient's pre-existing badges for reuse in the suggestion context. Inserts
// run on a context that survives request cancellation: an award that was
// computed is safe and idempotent to keep even if the caller went away.
func (c *Coordinator) awardBadges(ctx context.Context, patientID uuid.UUID, history []trend.Entry, outcome *Outcome, log *slog.Logger) []achievement.Badge {
	existing, err := c.repo.GetBadges(ctx, patientID)
	if err != nil {
		log.Error("feedback: badge lookup failed, skipping award pass", "error", err)
		return nil
	}

	candidates := c.engine.Evaluate(patientID, history, existing, c.now())
	if len(candidates) == 0 {
		return existing
	}

	persistCtx := context.WithoutCancel(ctx)
	for _, b := range candidates {
		switch err := c.repo.InsertBadge(persistCtx, b); {
		case err == nil:
			outcome.NewBadges = append(outcome.NewBadges, b)
			log.Info("feedback: badge awarded", "badge", b.Name, "tier", b.Tier)
		case errors.Is(err, store.ErrDuplicateBadge):
			// A concurrent submission won the race. Benign: not retried, not
			// reported as new.
			log.Debug("feedback: duplicate badge award swallowed", "badge", b.Name, "tier", b.Tier)
		default:
			log.Error("feedback: badge insert failed", "badge", b.Name, "tier", b.Tier, "error", err)
		}
	}

	return existing
}

// generateSuggestion builds the sanitized context, calls the generator under
// its deadline, and falls back to the static template on any failure. The
// returned text has always passed inbound validation.
func (c *Coordinator) generateSuggestion(
	ctx context.Context,
	patientID uuid.UUID,
	result trend.Result,
	history []trend.Entry,
	existing, newBadges []achievement.Badge,
	log *slog.Logger,
) string {
	bundle := c.buildBundle(ctx, patientID, history, existing, newBadges, log)
	sanitized := phi.SanitizeBundle(bundle)

	genCtx, cancel := context.WithTimeout(ctx, c.suggestionTimeout)
	defer cancel()

	text, err := c.generator.Generate(genCtx, ai.SuggestionRequest{
		Trend:   result,
		Context: sanitized,
	})
	if err != nil {
		// Generation failure is recovered locally — the patient still gets a
		// proactive message, just a templated one.
		log.Warn("feedback: suggestion generation failed, using static template",
			"error", err,
			"trend_type", result.Type,
			"category", result.Category,
		)
		text = ai.StaticSuggestion(result.Type, result.Category)
	}

	clean, ok := phi.ValidateResponse(text)
	if !ok {
		// Security event: the provider echoed or invented something that
		// looks like PHI. The redacted text is still shown.
		log.Warn("feedback: PHI detected in generated suggestion, redacted",
			"trend_type", result.Type,
			"category", result.Category,
		)
	}
	return clean
}

// buildBundle assembles the identifying view that SanitizeBundle will strip.
// Reads that fail degrade to empty fields — a suggestion without care plan
// context is still worth sending.
func (c *Coordinator) buildBundle(
	ctx context.Context,
	patientID uuid.UUID,
	history []trend.Entry,
	existing, newBadges []achievement.Badge,
	log *slog.Logger,
) phi.DataBundle {
	bundle := phi.DataBundle{PatientID: patientID.String()}

	if patient, err := c.repo.GetPatient(ctx, patientID); err != nil {
		log.Warn("feedback: patient lookup failed, proceeding without identity fields", "error", err)
	} else {
		bundle.PatientName = patient.FirstName + " " + patient.LastName
		bundle.PatientEmail = patient.Email
		bundle.PatientPhone = patient.Phone
	}

	if cp, err := c.repo.GetCarePlan(ctx, patientID); err != nil {
		log.Warn("feedback: care plan lookup failed, proceeding without directives", "error", err)
	} else {
		bundle.CarePlan = phi.CarePlanSummary{
			Diet:       cp.Diet,
			Exercise:   cp.Exercise,
			Medication: cp.Medication,
		}
	}

	recent := history
	if len(recent) > promptHistoryWindow {
		recent = recent[len(recent)-promptHistoryWindow:]
	}
	for _, e := range recent {
		bundle.Scores = append(bundle.Scores, phi.ScoreRecord{
			Date:       e.Date,
			Diet:       e.Diet,
			Exercise:   e.Exercise,
			Medication: e.Medication,
		})
	}

	for _, b := range existing {
		bundle.Badges = append(bundle.Badges, phi.BadgeRecord{
			Name: b.Name, Tier: string(b.Tier), EarnedDate: b.EarnedDate,
		})
	}
	for _, b := range newBadges {
		bundle.Badges = append(bundle.Badges, phi.BadgeRecord{
			Name: b.Name, Tier: string(b.Tier), EarnedDate: b.EarnedDate,
		})
	}

	return bundle
}
