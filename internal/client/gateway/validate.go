package gateway

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// "required" accepts whitespace-only strings; forms must not.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// checkForm validates form and turns the first failure into a
// ValidationError. Fields are checked in declaration order, so the order of
// struct fields is the order in which problems are reported.
//
// messages is keyed by "Field.tag" or by "Field" alone.
func checkForm(form any, messages map[string]string) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	fe := fieldErrs[0]
	msg := messages[fe.StructField()+"."+fe.Tag()]
	if msg == "" {
		msg = messages[fe.StructField()]
	}
	if msg == "" {
		msg = fmt.Sprintf("%s is invalid", fe.Field())
	}
	return &ValidationError{Field: fe.Field(), Message: msg}
}

// queryForm is the body of search and suggestion calls.
type queryForm struct {
	Query string `json:"query" validate:"notblank"`
}

var queryMessages = map[string]string{"Query": "Please enter a search query"}
