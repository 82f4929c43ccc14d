package sales

import "errors"

// Error variables for dataset handling.
var (
	ErrMalformedDataset  = errors.New("malformed dataset")
	ErrNotNumeric        = errors.New("not a number")
	ErrInvalidStoreHours = errors.New("invalid store hours")
	ErrInvalidTimeLabel  = errors.New("invalid time label")
	ErrForecastTooShort  = errors.New("forecast needs at least 2 rows")
	ErrUnknownPeriod     = errors.New("unknown period")
)
