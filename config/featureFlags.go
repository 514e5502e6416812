package config

import (
	"os"
	"strconv"
	"strings"
)

// EvalWorkerCount controls how many rules are evaluated concurrently during a
// compliance run. Rule evaluations share no mutable state, so this only trades
// CPU for latency.
//
// Set via env:
// - COMPLIANCE_EVAL_WORKERS=4
func EvalWorkerCount() int {
	v := strings.TrimSpace(os.Getenv("COMPLIANCE_EVAL_WORKERS"))
	if v == "" {
		return 4
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 4
	}
	return n
}

// StrictCatalogIntegrity makes a run fail when a catalog entry references a
// compliance rule that no longer exists. When disabled, the dangling entry is
// reported in logs and skipped for rule-link matching (category/keyword
// matching still applies).
//
// Set via env:
// - STRICT_CATALOG_INTEGRITY=false
func StrictCatalogIntegrity() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_CATALOG_INTEGRITY")))
	if v == "" {
		return true
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
