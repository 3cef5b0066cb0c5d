package construction

import "errors"

// Domain errors for report store operations.
var (
	// ErrReportNotFound is returned when a report does not exist.
	ErrReportNotFound = errors.New("report not found")

	// ErrReportExists is returned when saving a report whose ID is taken.
	ErrReportExists = errors.New("report already exists")

	// ErrInvalidReportID is returned when a report ID is empty.
	ErrInvalidReportID = errors.New("invalid report ID")

	// ErrConnectionFailed is returned when connection to the store backend fails.
	ErrConnectionFailed = errors.New("store connection failed")

	// ErrVerificationFailed is returned when replaying an inserted path does
	// not reach the target state.
	ErrVerificationFailed = errors.New("verification failed")
)
