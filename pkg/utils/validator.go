package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs validator tags on a request struct and collapses the
// field errors into a single caller-facing message.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var messages []string
	for _, fieldErr := range err.(validator.ValidationErrors) {
		field := strings.ToLower(fieldErr.Field())
		tag := fieldErr.Tag()
		param := fieldErr.Param()

		switch tag {
		case "required":
			messages = append(messages, field+" is required")
		case "min":
			messages = append(messages, field+" must be at least "+param)
		case "max":
			messages = append(messages, field+" must be at most "+param)
		case "email":
			messages = append(messages, field+" must be a valid email")
		case "gte":
			messages = append(messages, field+" must be at least "+param)
		case "lte":
			messages = append(messages, field+" must be at most "+param)
		default:
			messages = append(messages, field+" is invalid")
		}
	}

	return fmt.Errorf("%s", strings.Join(messages, ", "))
}
