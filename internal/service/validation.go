package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"cardsystem/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

var (
	minAmount = decimal.RequireFromString("0.01")
	// decimal(10,2) holds at most 8 integer digits
	maxAmount = decimal.New(1, 8)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// report json field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("card_type", func(fl validator.FieldLevel) bool {
		return model.CardType(fl.Field().String()).Valid()
	})
	return v
}

// validateStruct runs the validate tags of s and reports violations as ErrInvalidInput.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed on %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}

// validateAmount accepts 0.01 <= amount < 100000000 with at most two decimals.
func validateAmount(amount decimal.Decimal) error {
	if amount.LessThan(minAmount) {
		return fmt.Errorf("%w: total_amount must be at least %s", ErrInvalidInput, minAmount.StringFixed(2))
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("%w: total_amount must be below %s", ErrInvalidInput, maxAmount.String())
	}
	if !amount.Equal(amount.Truncate(2)) {
		return fmt.Errorf("%w: total_amount must have at most 2 decimal places", ErrInvalidInput)
	}
	return nil
}

// validateCodeFormat requires exactly length ASCII digits.
func validateCodeFormat(code string, length int) error {
	if len(code) != length {
		return fmt.Errorf("%w: validation_number must have %d digits", ErrInvalidInput, length)
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return fmt.Errorf("%w: validation_number must be numeric", ErrInvalidInput)
		}
	}
	return nil
}
