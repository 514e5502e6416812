package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

var ErrorDuplicateValue = errors.New("duplicate value")

// ErrorCheckInProgress is returned when a compliance run for the same
// (site, month, year) key is already holding the run lock. Callers may retry
// after backoff.
var ErrorCheckInProgress = errors.New("check already running")

// ErrorNoMenuData is returned when a run is requested for a period that has
// no parsed menu days.
var ErrorNoMenuData = errors.New("no menu data for period")
