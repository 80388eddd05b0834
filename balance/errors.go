package balance

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidYearRange is returned when Min > Max.
	ErrInvalidYearRange = errors.New("balance: min year is greater than max year")

	// ErrNegativeMinSize is returned for a negative minimum bucket size.
	ErrNegativeMinSize = errors.New("balance: min size must not be negative")

	// ErrYearOutOfRange is the sentinel matched by YearOutOfRangeError.
	ErrYearOutOfRange = errors.New("balance: year out of range")
)

// YearOutOfRangeError reports a point whose year is outside the configured
// range. The Validator panics with this value.
type YearOutOfRangeError struct {
	Year  int
	Range YearRange
}

func (e *YearOutOfRangeError) Error() string {
	return fmt.Sprintf("balance: year %d outside %s", e.Year, e.Range)
}

// Is reports whether target is ErrYearOutOfRange.
func (e *YearOutOfRangeError) Is(target error) bool { return target == ErrYearOutOfRange }
