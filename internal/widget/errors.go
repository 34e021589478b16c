package widget

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rafaeljc/adentity/internal/adcontext"
	"github.com/rafaeljc/adentity/internal/form"
)

// ErrIllegalChoice is returned when a submitted option is not on offer.
var ErrIllegalChoice = errors.New("illegal choice")

// FieldError is a rejection of one element of one submitted value.
// Field is a dotted path inside the value, e.g. "rule_settings.geo.countries".
type FieldError struct {
	Delta int
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("value %d: %s: %v", e.Delta, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Path addresses the element inside a form built by Widget.Form.
func (e *FieldError) Path() []string {
	return append([]string{strconv.Itoa(e.Delta)}, strings.Split(e.Field, ".")...)
}

// ValidationError aggregates every FieldError of a submission.
type ValidationError struct {
	Errors []*FieldError
}

func (e *ValidationError) Error() string {
	return e.joined().Error()
}

// Unwrap exposes the field errors to errors.Is and errors.As.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, fe := range e.Errors {
		errs[i] = fe
	}
	return errs
}

// State converts the errors into a form.State for re-rendering.
func (e *ValidationError) State() *form.State {
	state := form.NewState()
	for _, fe := range e.Errors {
		state.SetError(fe.Err.Error(), fe.Path()...)
	}
	return state
}

func (e *ValidationError) joined() error {
	return errors.Join(e.Unwrap()...)
}

func settingsFieldError(delta int, ruleTypeID string, err error) *FieldError {
	field := "rule_settings." + ruleTypeID
	var settingsErr *adcontext.SettingsError
	if errors.As(err, &settingsErr) && settingsErr.Field != "" {
		field += "." + settingsErr.Field
	}
	return &FieldError{Delta: delta, Field: field, Err: err}
}
