package temperature

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Table is the relation holding monthly average temperatures per city.
const Table = "global_land_temperatures_by_city"

// DateLayout is the wire and display format for record dates.
const DateLayout = "2006-01-02"

// Record is one row of the monthly city temperature table.
type Record struct {
	Date                      time.Time `json:"dt" validate:"required"`
	AvgTemperature            *float64  `json:"avg_temperature" validate:"omitempty,finite"`
	AvgTemperatureUncertainty *float64  `json:"avg_temperature_uncertainty" validate:"omitempty,finite"`
	City                      string    `json:"city" validate:"required,max=64"`
	Country                   string    `json:"country" validate:"required,max=64"`
	Latitude                  string    `json:"latitude" validate:"omitempty,max=8,latitude_hemi"`
	Longitude                 string    `json:"longitude" validate:"omitempty,max=8,longitude_hemi"`
}

// MarshalJSON renders the date as YYYY-MM-DD instead of RFC 3339.
func (r Record) MarshalJSON() ([]byte, error) {
	type wire Record
	return json.Marshal(struct {
		wire
		Date string `json:"dt"`
	}{
		wire: wire(r),
		Date: FormatDate(r.Date),
	})
}

// Field names one of the two temperature columns that may be updated.
type Field string

const (
	FieldAvgTemperature            Field = "avg_temperature"
	FieldAvgTemperatureUncertainty Field = "avg_temperature_uncertainty"
)

// Valid reports whether f is an updatable column.
func (f Field) Valid() bool {
	switch f {
	case FieldAvgTemperature, FieldAvgTemperatureUncertainty:
		return true
	}
	return false
}

// ParseField maps a wire field name to a Field.
func ParseField(s string) (Field, error) {
	f := Field(strings.TrimSpace(s))
	if !f.Valid() {
		return "", fmt.Errorf("%w: invalid field to update %q, must be %s or %s",
			ErrValidation, s, FieldAvgTemperature, FieldAvgTemperatureUncertainty)
	}
	return f, nil
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, must be in YYYY-MM-DD format", ErrValidation, s)
	}
	return d, nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatValue renders an optional reading, "null" when absent.
func FormatValue(v *float64) string {
	if v == nil {
		return "null"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
