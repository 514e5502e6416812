package compliance

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/foodhouse/menucheck_backend/models"
)

func TestBuildEvidenceSortsDayLists(t *testing.T) {
	allDays := []string{"2026-03-01", "2026-03-02", "2026-03-03", "2026-03-04"}
	evidence := buildEvidence(3, 2, []string{"2026-03-03", "2026-03-01"}, allDays, "")

	if evidence.Comparison != models.ComparisonUnder {
		t.Fatalf("comparison = %s, want under", evidence.Comparison)
	}
	if got := evidence.FoundOnDays; len(got) != 2 || got[0] != "2026-03-01" || got[1] != "2026-03-03" {
		t.Fatalf("found days not sorted: %v", got)
	}
	// Shortfall of one: exactly one missing day, the earliest unmatched.
	if got := evidence.MissingOnDays; len(got) != 1 || got[0] != "2026-03-02" {
		t.Fatalf("missing days = %v, want [2026-03-02]", got)
	}
}

func TestBuildEvidenceEvenHasEmptyLists(t *testing.T) {
	// An exact hit carries no day lists at all, found or missing.
	evidence := buildEvidence(2, 2, []string{"2026-03-02", "2026-03-09"}, []string{"2026-03-02", "2026-03-09", "2026-03-16"}, "")
	if evidence.Comparison != models.ComparisonEven {
		t.Fatalf("comparison = %s, want even", evidence.Comparison)
	}
	if len(evidence.FoundOnDays) != 0 {
		t.Fatalf("even result must have no found days, got %v", evidence.FoundOnDays)
	}
	if len(evidence.MissingOnDays) != 0 {
		t.Fatalf("even result must have no missing days, got %v", evidence.MissingOnDays)
	}
}

func TestBuildEvidenceAboveHasNoMissingDays(t *testing.T) {
	evidence := buildEvidence(1, 3, []string{"2026-03-01", "2026-03-02", "2026-03-03"}, []string{"2026-03-01", "2026-03-02", "2026-03-03", "2026-03-04"}, "")
	if evidence.Comparison != models.ComparisonAbove {
		t.Fatalf("comparison = %s, want above", evidence.Comparison)
	}
	if len(evidence.MissingOnDays) != 0 {
		t.Fatalf("above result must have no missing days, got %v", evidence.MissingOnDays)
	}
}

func TestEvidenceSerializationIsByteIdentical(t *testing.T) {
	build := func() []byte {
		evidence := buildEvidence(12, 10,
			[]string{"2026-03-08", "2026-03-01", "2026-03-15", "2026-03-02", "2026-03-03",
				"2026-03-09", "2026-03-10", "2026-03-16", "2026-03-17", "2026-03-22"},
			[]string{"2026-03-01", "2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05",
				"2026-03-08", "2026-03-09", "2026-03-10", "2026-03-15", "2026-03-16",
				"2026-03-17", "2026-03-22"},
			"2.50")
		raw, err := json.Marshal(evidence)
		if err != nil {
			t.Fatalf("marshal evidence: %v", err)
		}
		return raw
	}

	first := build()
	for i := 0; i < 5; i++ {
		if next := build(); !bytes.Equal(first, next) {
			t.Fatalf("evidence serialization differs between runs:\n%s\n%s", first, next)
		}
	}
}

func TestDegradedEvidenceHasNullExpectedCount(t *testing.T) {
	raw, err := json.Marshal(degradedEvidence())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["expected_count"] != nil {
		t.Fatalf("degraded evidence expected_count = %v, want null", decoded["expected_count"])
	}
	if decoded["comparison"] != "even" {
		t.Fatalf("degraded evidence comparison = %v, want even", decoded["comparison"])
	}
}

func TestWeeklyAverageFor(t *testing.T) {
	if got := weeklyAverageFor(10, 4); got != "2.50" {
		t.Fatalf("weeklyAverageFor(10, 4) = %q, want 2.50", got)
	}
	if got := weeklyAverageFor(1, 3); got != "0.33" {
		t.Fatalf("weeklyAverageFor(1, 3) = %q, want 0.33", got)
	}
	if got := weeklyAverageFor(5, 0); got != "" {
		t.Fatalf("weeklyAverageFor with zero weeks = %q, want empty", got)
	}
}
