package service

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("field"); name != "" {
			return name
		}
		return f.Name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	// max считает руны, bcrypt ограничивает длину в байтах
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= limit
	})
	return v
}

var reasons = map[string]string{
	"notblank": "не может быть пустым",
	"required": "обязательно",
	"email":    "некорректный адрес",
	"max":      "слишком длинное значение",
	"min":      "значение меньше допустимого",
	"gt":       "должно быть положительным",
	"oneof":    "недопустимое значение",
}

// validateInput возвращает BusinessError по первому нарушенному правилу.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return NewValidationError("input", err.Error())
	}

	fe := fieldErrs[0]
	reason, ok := reasons[fe.Tag()]
	if !ok {
		reason = fe.Tag()
	}
	switch {
	case fe.Tag() == "max" && fe.Kind() != reflect.String:
		reason = "значение больше допустимого"
	case fe.Tag() == "maxbytes":
		reason = fmt.Sprintf("длиннее %s байт", fe.Param())
	}
	return NewValidationError(fe.Field(), reason)
}

func requireID(field string, id int64) error {
	if id <= 0 {
		return NewValidationError(field, "должно быть положительным")
	}
	return nil
}
