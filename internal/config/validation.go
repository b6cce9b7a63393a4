package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks cfg before any graph work. Every failing field is reported
// in one *ValidationError.
func Validate(cfg *Config) error {
	var problems []FieldProblem

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			problems = append(problems, FieldProblem{Field: fieldPath(fe), Message: describe(fe)})
		}
	}

	if cfg.Expand.SessionGateSim < cfg.Expand.ExpandSimThreshold {
		problems = append(problems, FieldProblem{
			Field:   "expand.session_gate_sim",
			Message: fmt.Sprintf("must be at least expand.expand_sim_threshold (%g)", cfg.Expand.ExpandSimThreshold),
		})
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// fieldPath turns "Config.suits.max_suits" into "suits.max_suits".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s (got %v)", fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("must be at least %s (got %v)", fe.Param(), fe.Value())
	case "lt":
		return fmt.Sprintf("must be less than %s (got %v)", fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("must be at most %s (got %v)", fe.Param(), fe.Value())
	case "min":
		return fmt.Sprintf("needs at least %s entries", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s (got %q)", fe.Param(), fe.Value())
	case "url":
		return "must be a valid URL"
	case "hostname_rfc1123":
		return fmt.Sprintf("%q is not a valid domain", fe.Value())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
