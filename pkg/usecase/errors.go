package usecase

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrEmptyQuestion is returned before any upstream call when the
	// chat question is empty.
	ErrEmptyQuestion = goerr.New("question is empty")

	// ErrEmptyBuildingID is returned when an operation requires a
	// building identifier and none was given.
	ErrEmptyBuildingID = goerr.New("building ID is empty")

	// ErrQueryFailed wraps upstream failures in the answer pipeline.
	// The failing stage is attached as a goerr value ("stage":
	// embed, retrieve or complete).
	ErrQueryFailed = goerr.New("failed to process query")

	// ErrIncompleteIndex is returned when some records could not be
	// verified after the retry budget. The collection is left in place;
	// the failed count is attached as a goerr value.
	ErrIncompleteIndex = goerr.New("index build incomplete")
)
