package temperature

import (
	"errors"
	"strings"
	"time"
)

// Error kinds. Every failure returned by the store matches exactly one of
// these through errors.Is.
var (
	ErrValidation          = errors.New("validation failed")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrNotFound            = errors.New("no matching record")
	ErrStorage             = errors.New("storage failure")
)

// Error describes a failed store operation.
type Error struct {
	Op   string // insert, update, top_n
	Kind error  // one of the Err* kinds above
	Key  string // date/city, or the query range and limit
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Key != "" {
		b.WriteString(" ")
		b.WriteString(e.Key)
	}
	b.WriteString(": ")

	switch {
	case e.Err == nil:
		b.WriteString(e.Kind.Error())
	case errors.Is(e.Err, e.Kind):
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(e.Kind.Error())
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the error kind err carries, or nil if it carries none.
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrConstraintViolation, ErrNotFound, ErrStorage} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// RecordKey identifies a record in error messages.
func RecordKey(date time.Time, city string) string {
	return FormatDate(date) + "/" + city
}
