package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/ablaqll/pmpk-website-sub000/shared/apperrors"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	validateOnce sync.Once
)

// IsSlug reports whether s is a lowercase, hyphen-separated slug
func IsSlug(s string) bool {
	return slugPattern.MatchString(s)
}

func registerValidators() {
	validateOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			logrus.Fatalf("Unexpected validator engine %T", binding.Validator.Engine())
		}
		if err := registerSlugValidation(v); err != nil {
			logrus.WithError(err).Fatal("Failed to register validators")
		}
	})
}

func registerSlugValidation(v *validator.Validate) error {
	return v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return IsSlug(fl.Field().String())
	})
}

// Bind decodes the call parameters into T and validates its binding tags
func Bind[T any](call *Call) (*T, error) {
	var params T
	raw := bytes.TrimSpace(call.Params)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, apperrors.Validation("Invalid input: " + describeDecodeError(err))
		}
	}
	if err := binding.Validator.ValidateStruct(&params); err != nil {
		return nil, apperrors.Validation(describeValidationError(err))
	}
	return &params, nil
}

func describeDecodeError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("%s must be %s", typeErr.Field, typeErr.Type)
	}
	return err.Error()
}

func describeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		case "slug":
			msgs = append(msgs, field+" must be a lowercase slug")
		case "min", "max", "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
