package messagequeue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/Strob0t/buildnotify/internal/domain"
	"github.com/Strob0t/buildnotify/internal/domain/build"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(v, "build_result", func(fl validator.FieldLevel) bool {
		r, err := build.ParseResult(fl.Field().String())
		return err == nil && r != ""
	})
	mustRegister(v, "no_control", func(fl validator.FieldLevel) bool {
		return !strings.ContainsFunc(fl.Field().String(), unicode.IsControl)
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects only need valid JSON.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s: %w", subject, domain.ErrValidation)
	}

	switch subject {
	case SubjectBuildFinished:
		_, err := DecodeBuildFinished(data)
		return err
	default:
		return nil
	}
}

// DecodeBuildFinished unmarshals and validates a build event.
func DecodeBuildFinished(data []byte) (*BuildFinishedPayload, error) {
	var p BuildFinishedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode %s: %w: %w", SubjectBuildFinished, domain.ErrValidation, err)
	}
	if err := ValidatePayload(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ValidatePayload runs struct validation and flattens field errors into one
// readable message wrapping domain.ErrValidation.
func ValidatePayload(p any) error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(msgs, "; "))
}
