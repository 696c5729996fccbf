package domain

import "errors"

// Input validation errors. Lenient mode only ever returns the structural ones
// (empty universe, duplicate or blank tickers); the rest are strict-mode checks.
var (
	ErrEmptyUniverse        = errors.New("asset universe is empty")
	ErrDuplicateTicker      = errors.New("duplicate ticker in asset universe")
	ErrBlankTicker          = errors.New("blank ticker in asset universe")
	ErrMissingMeanReturn    = errors.New("mean return missing for ticker")
	ErrMissingCovariance    = errors.New("covariance cell missing")
	ErrAsymmetricCovariance = errors.New("covariance matrix is not symmetric")
	ErrNonFiniteInput       = errors.New("non-finite input value")
	ErrInvalidWeights       = errors.New("weights must be non-negative and sum to 1")
	ErrMissingPrice         = errors.New("price missing for weighted ticker")
	ErrUnorderedSeries      = errors.New("price rows are not in ascending date order")
	ErrUnknownValidation    = errors.New("unknown validation mode")
)

var validationErrors = []error{
	ErrEmptyUniverse,
	ErrDuplicateTicker,
	ErrBlankTicker,
	ErrMissingMeanReturn,
	ErrMissingCovariance,
	ErrAsymmetricCovariance,
	ErrNonFiniteInput,
	ErrInvalidWeights,
	ErrMissingPrice,
	ErrUnorderedSeries,
	ErrUnknownValidation,
}

// IsValidationError reports whether err stems from rejected caller input.
func IsValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
