package btl

import "github.com/pkg/errors"

var (
	// ErrDomain is returned for statistically invalid input such as an empty label set.
	ErrDomain = errors.New("domain error")
	// ErrNoSplitAvailable means that no attribute improves the purity of a node.
	ErrNoSplitAvailable = errors.New("no split available")
	// ErrMalformedInstance is returned when an instance does not fit the attribute space of a model.
	ErrMalformedInstance = errors.New("malformed instance")
	// ErrEmptyEnsemble is returned when an ensemble is queried before it was fit.
	ErrEmptyEnsemble = errors.New("empty ensemble")
	// ErrInsufficientData is returned when there are not enough rows for the requested folds.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrNotFitted is returned when a tree is queried before it was fit.
	ErrNotFitted = errors.New("model is not fitted")
	// ErrInvalidParams is returned by parameter validation.
	ErrInvalidParams = errors.New("invalid parameters")
)
