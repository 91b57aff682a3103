package thread

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrDuplicateID is returned by ValidateAll for a repeated utterance id.
var ErrDuplicateID = errors.New("duplicate utterance id")

// Validate checks the field constraints of a single utterance.
func (u Utterance) Validate() error {
	if err := validate.Struct(u); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("utterance %q: %w", u.ID, err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, formatFieldError(fe))
		}
		return fmt.Errorf("utterance %q: %s", u.ID, strings.Join(msgs, "; "))
	}
	return nil
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "nefield":
		return field + " must differ from " + strings.ToLower(e.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	default:
		return field + " is invalid"
	}
}

// ValidateAll validates every utterance and rejects repeated ids.
func ValidateAll(utts []Utterance) error {
	seen := make(map[string]struct{}, len(utts))
	var errs []error
	for _, u := range utts {
		if err := u.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := seen[u.ID]; dup {
			errs = append(errs, fmt.Errorf("utterance %q: %w", u.ID, ErrDuplicateID))
		}
		seen[u.ID] = struct{}{}
	}
	return errors.Join(errs...)
}
