// Package phi scrubs identifying data from anything that leaves the process
// for an external text-generation provider, and validates what comes back.
//
// Detection is regex-based and best-effort: a blacklist of common PHI shapes,
// not a formal redaction guarantee. Novel formats can slip through, which is
// why the structural transform (SanitizeBundle) strips whole fields instead of
// pattern-matching them, and why AI output is re-checked on the way in.
package phi

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"
)

// TokenMap records token → original value for one sanitization call. It exists
// for traceability in tests and incident review only — it is never persisted,
// never logged, and never used to re-identify text that has already been sent
// externally.
type TokenMap map[string]string

// ─── OUTBOUND PATTERNS ────────────────────────────────────────────────────────

// pattern couples a compiled regex with the token prefix its matches receive.
// Order matters: names run before addresses, so "12 Baker Street" loses
// "Baker Street" to the name pattern first. That is the accepted behavior —
// over-redaction is fine, under-redaction is not.
type pattern struct {
	re     *regexp.Regexp
	prefix string
}

var outboundPatterns = []pattern{
	// Capitalized two-word sequences: "John Smith", "Mary Jane". Catches most
	// Western-style full names, also some false positives (place names) that
	// we accept as over-redaction.
	{regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`), "PATIENT"},

	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "EMAIL"},

	// Local (0412345678, 02 9876 5432) and international (+61 412 345 678)
	// phone formats.
	{regexp.MustCompile(`(?:\+\d{1,3}[ -]?)?(?:\(\d{1,4}\)[ -]?)?\d{2,4}[ -]?\d{3,4}[ -]?\d{3,4}\b`), "PHONE"},

	// Numeric identifier fields: "ID: 12345", "patient id 42", "MRN#98765".
	{regexp.MustCompile(`(?i)\b(?:patient[ -]?id|mrn|record(?: number)?|id)\s*[:#]?\s*\d+\b`), "ID"},

	// Street addresses: "12 High St", "400 George Street".
	{regexp.MustCompile(`\b\d+\s+[A-Za-z]+\s+(?:Street|St|Road|Rd|Avenue|Ave|Drive|Dr|Lane|Ln|Court|Ct|Boulevard|Blvd|Place|Pl|Way|Crescent|Cres)\b`), "ADDRESS"},
}

// ─── INBOUND PATTERNS ─────────────────────────────────────────────────────────

// inboundPatterns cover everything outboundPatterns do, plus shapes that only
// matter in generated output: explicit dates and "Patient ID: n" phrasing that
// a model might echo or invent.
var inboundPatterns = buildInboundPatterns()

func buildInboundPatterns() []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(outboundPatterns)+3)
	for _, p := range outboundPatterns {
		res = append(res, p.re)
	}
	const months = `january|february|march|april|may|june|july|august|september|october|november|december`
	res = append(res,
		// Numeric dates: 12/04/2026, 2026-04-12, 12-4-26.
		regexp.MustCompile(`\b\d{1,4}[/-]\d{1,2}[/-]\d{1,4}\b`),
		// Month-name dates: "12 April 2026", "April 12, 2026", "April 12".
		// A numeric day is required on one side so the bare word "may" in
		// ordinary prose is not redacted.
		regexp.MustCompile(`(?i)\b(?:\d{1,2}\s+(?:`+months+`)(?:\s+\d{4})?|(?:`+months+`)\s+\d{1,2}(?:st|nd|rd|th)?(?:,?\s+\d{4})?)\b`),
		regexp.MustCompile(`(?i)\bpatient\s+id\s*[:#]?\s*\d+\b`),
	)
	return res
}

// ─── OUTBOUND SCRUBBING ───────────────────────────────────────────────────────

// SanitizeText applies the ordered outbound patterns to text. Every distinct
// match becomes a typed token (PATIENT_1, EMAIL_1, PHONE_2, ...); repeated
// occurrences of the same value reuse the same token. The returned TokenMap
// maps each token to the value it replaced.
func SanitizeText(text string) (string, TokenMap) {
	tokens := make(TokenMap)

	for _, p := range outboundPatterns {
		counter := 0
		assigned := make(map[string]string) // original value → token
		text = p.re.ReplaceAllStringFunc(text, func(match string) string {
			if tok, ok := assigned[match]; ok {
				return tok
			}
			counter++
			tok := fmt.Sprintf("%s_%d", p.prefix, counter)
			assigned[match] = tok
			tokens[tok] = match
			return tok
		})
	}

	return text, tokens
}

// ─── STRUCTURAL SANITIZATION ──────────────────────────────────────────────────

// DataBundle is the identifying view of the context we want the suggestion
// provider to see. Only its sanitized counterpart ever leaves the process.
type DataBundle struct {
	PatientID    string
	PatientName  string
	PatientEmail string
	PatientPhone string
	Scores       []ScoreRecord
	Badges       []BadgeRecord
	CarePlan     CarePlanSummary
}

// ScoreRecord is one submission as it appears inside a bundle.
type ScoreRecord struct {
	Date       time.Time
	Diet       int
	Exercise   int
	Medication int
}

// BadgeRecord is one earned badge as it appears inside a bundle.
type BadgeRecord struct {
	Name       string
	Tier       string
	EarnedDate time.Time
}

// CarePlanSummary is the clinician-authored guidance per category. Free text,
// so it gets pattern-scrubbed rather than dropped.
type CarePlanSummary struct {
	Diet       string
	Exercise   string
	Medication string
}

// SanitizedBundle is what SanitizeBundle produces: no name, email, or phone;
// an opaque patient reference; scores without real timestamps; badges reduced
// to name, tier, and a placeholder date.
type SanitizedBundle struct {
	PatientRef string
	Scores     []SanitizedScore
	Badges     []SanitizedBadge
	CarePlan   CarePlanSummary
}

// SanitizedScore keeps the score values and replaces the timestamp with a
// relative day label ("day 1" .. "day N"), which preserves ordering without
// leaking when the patient was actually active.
type SanitizedScore struct {
	Day        string
	Diet       int
	Exercise   int
	Medication int
}

// SanitizedBadge carries only the badge name, tier, and a generic date.
type SanitizedBadge struct {
	Name   string
	Tier   string
	Earned string
}

const datePlaceholder = "recently"

// SanitizeBundle strips identifying fields from a DataBundle. The transform is
// deterministic: the same input always yields the same output, including the
// opaque patient reference.
func SanitizeBundle(b DataBundle) SanitizedBundle {
	out := SanitizedBundle{
		PatientRef: opaqueRef(b.PatientID),
	}

	out.Scores = make([]SanitizedScore, len(b.Scores))
	for i, s := range b.Scores {
		out.Scores[i] = SanitizedScore{
			Day:        fmt.Sprintf("day %d", i+1),
			Diet:       s.Diet,
			Exercise:   s.Exercise,
			Medication: s.Medication,
		}
	}

	out.Badges = make([]SanitizedBadge, len(b.Badges))
	for i, bd := range b.Badges {
		out.Badges[i] = SanitizedBadge{
			Name:   bd.Name,
			Tier:   bd.Tier,
			Earned: datePlaceholder,
		}
	}

	// Care plan text is clinician-authored and may mention the patient by
	// name, so it goes through the pattern scrub. The token maps are
	// discarded — nothing downstream needs them.
	out.CarePlan.Diet, _ = SanitizeText(b.CarePlan.Diet)
	out.CarePlan.Exercise, _ = SanitizeText(b.CarePlan.Exercise)
	out.CarePlan.Medication, _ = SanitizeText(b.CarePlan.Medication)

	return out
}

// opaqueRef derives a stable, non-reversible reference from a patient ID.
func opaqueRef(patientID string) string {
	sum := sha256.Sum256([]byte(patientID))
	return "ref_" + hex.EncodeToString(sum[:])[:12]
}

// ─── INBOUND VALIDATION ───────────────────────────────────────────────────────

const redacted = "[REDACTED]"

// ValidateResponse re-runs detection over provider output. Any match is
// replaced with [REDACTED] and ok is false, signalling the caller to log a
// security event. The cleaned text is always safe to display.
func ValidateResponse(text string) (clean string, ok bool) {
	ok = true
	for _, re := range inboundPatterns {
		if re.MatchString(text) {
			ok = false
			text = re.ReplaceAllString(text, redacted)
		}
	}
	return text, ok
}
