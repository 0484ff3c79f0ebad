package csvio

import "errors"

// Sentinel kinds for delimited-text errors.
var (
	ErrMissingColumns = errors.New("csv header missing required columns")
	ErrNoRows         = errors.New("csv had no data rows")
)
