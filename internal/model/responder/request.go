package responder

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/astrachat/astra/internal/model/chat"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ProcessRequest is the payload posted to /process.
type ProcessRequest struct {
	Prompt string    `json:"prompt" validate:"required"`
	Mode   chat.Mode `json:"mode" validate:"required,oneof=text audio video"`
}

// Normalize trims the prompt and defaults an empty mode to text.
func (r ProcessRequest) Normalize() ProcessRequest {
	r.Prompt = strings.TrimSpace(r.Prompt)
	if r.Mode == "" {
		r.Mode = chat.ModeText
	}
	return r
}

// Validate checks the request against its schema.
func (r ProcessRequest) Validate() error {
	return validate.Struct(r)
}

// PromptMissing reports whether a validation error was caused by the prompt.
func PromptMissing(err error) bool {
	return fieldFailed(err, "Prompt")
}

func fieldFailed(err error, field string) bool {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	for _, fe := range verrs {
		if fe.Field() == field {
			return true
		}
	}
	return false
}
