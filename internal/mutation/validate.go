package mutation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nhle/todoboard/internal/model"
)

var draftValidate = validator.New(validator.WithRequiredStructEnabled())

// ValidateDraft trims the title and checks the draft's field rules.
// It returns the normalized draft, or a *ValidationError naming the
// first offending field.
func ValidateDraft(d model.Draft) (model.Draft, error) {
	d.Title = strings.TrimSpace(d.Title)

	err := draftValidate.Struct(d)
	if err == nil {
		return d, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return d, fmt.Errorf("validating draft: %w", err)
	}

	fe := fieldErrs[0]
	ve := &ValidationError{Field: strings.ToLower(fe.Field())}
	switch fe.Tag() {
	case "required":
		ve.Reason = "must not be empty"
	case "gt":
		ve.Reason = "must be greater than " + fe.Param()
	default:
		ve.Reason = "failed " + fe.Tag()
	}
	return d, ve
}

// ValidateTitle applies the draft title rule to a single input value.
func ValidateTitle(title string) error {
	_, err := ValidateDraft(model.Draft{Title: title, UserID: 1})
	return err
}
