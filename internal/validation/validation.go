// Package validation wraps go-playground/validator with the catalog's
// character-class rules and turns failures into field → message maps.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NonFieldKey collects failures that do not belong to a single field.
const NonFieldKey = "non_field_errors"

var (
	lettersRe  = regexp.MustCompile(`^[a-zA-Zа-яА-Я\s]*$`)
	upperRe    = regexp.MustCompile(`^[A-Z]*$`)
	bookNameRe = regexp.MustCompile(`^[a-zA-Zа-яА-Я0-9\s]*$`)
	addressRe  = regexp.MustCompile(`^[a-zA-Zа-яА-Я0-9\s,.-]*$`)
)

var patterns = map[string]struct {
	re  *regexp.Regexp
	msg string
}{
	"letters":  {lettersRe, "only letters and spaces are allowed"},
	"upper":    {upperRe, "only uppercase Latin letters are allowed"},
	"bookname": {bookNameRe, "only letters, digits and spaces are allowed"},
	"address":  {addressRe, "only letters, digits, spaces and , . - are allowed"},
}

// Validator is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	for tag, p := range patterns {
		re := p.re
		// registration only fails on an empty tag or nil func
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		})
	}

	return &Validator{v: v}
}

// Struct validates s and returns nil when it passes. Only the first failure
// of each field is reported.
func (v *Validator) Struct(s any) map[string]string {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{NonFieldKey: err.Error()}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = message(fe)
	}
	return fields
}

func message(fe validator.FieldError) string {
	if p, ok := patterns[fe.Tag()]; ok {
		return p.msg
	}

	isText := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		if isText {
			return fmt.Sprintf("must be at least %s characters long", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if isText {
			return fmt.Sprintf("must be at most %s characters long", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters long", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "email":
		return "enter a valid email address"
	case "url":
		return "enter a valid URL"
	}
	return fmt.Sprintf("failed the %q rule", fe.Tag())
}
