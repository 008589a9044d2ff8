package temperature

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	latitudePattern  = regexp.MustCompile(`^(\d{1,2}\.\d{2})[NS]$`)
	longitudePattern = regexp.MustCompile(`^(\d{1,3}\.\d{2})[EW]$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	_ = v.RegisterValidation("latitude_hemi", coordinate(latitudePattern, 90))
	_ = v.RegisterValidation("longitude_hemi", coordinate(longitudePattern, 180))
	return v
}

// coordinate accepts "53.25N" style values whose magnitude is within limit.
func coordinate(pattern *regexp.Regexp, limit float64) validator.Func {
	return func(fl validator.FieldLevel) bool {
		m := pattern.FindStringSubmatch(fl.Field().String())
		if m == nil {
			return false
		}
		deg, err := strconv.ParseFloat(m[1], 64)
		return err == nil && deg <= limit
	}
}

// Validate checks the preconditions a record must meet before it is written.
// The returned error wraps ErrValidation.
func Validate(r Record) error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "finite":
		return fe.Field() + " must be a finite number"
	case "latitude_hemi":
		return fmt.Sprintf("latitude %q must look like 53.25N or 33.10S", fe.Value())
	case "longitude_hemi":
		return fmt.Sprintf("longitude %q must look like 13.00E or 118.70W", fe.Value())
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}
