package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/vedran77/nestmate/internal/domain"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

var validate = validator.New(validator.WithRequiredStructEnabled())

type messageInput struct {
	Content string `validate:"required,max=1000"`
}

type startConversationInput struct {
	UserID uuid.UUID `validate:"required"`
}

// NormalizeMessage trims content and checks it is non-empty and at most
// domain.MaxMessageLength characters. The trimmed content is returned even
// when validation fails.
func NormalizeMessage(content string) (string, ValidationErrors) {
	content = strings.TrimSpace(content)
	errs := make(ValidationErrors)

	if err := validate.Struct(messageInput{Content: content}); err != nil {
		collect(err, errs, map[string]string{
			"required": "Message content is required",
			"max":      fmt.Sprintf("Message content must be at most %d characters", domain.MaxMessageLength),
		})
	}

	return content, errs
}

func ValidateStartConversation(userID uuid.UUID) ValidationErrors {
	errs := make(ValidationErrors)
	if err := validate.Struct(startConversationInput{UserID: userID}); err != nil {
		collect(err, errs, map[string]string{
			"required": "user_id is required",
		})
	}
	return errs
}

func collect(err error, errs ValidationErrors, messages map[string]string) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add("_", err.Error())
		return
	}
	for _, fe := range verrs {
		field := toSnake(fe.Field())
		if msg, ok := messages[fe.Tag()]; ok {
			errs.Add(field, msg)
			continue
		}
		errs.Add(field, fmt.Sprintf("%s failed %s validation", field, fe.Tag()))
	}
}

func toSnake(s string) string {
	switch s {
	case "UserID":
		return "user_id"
	}
	return strings.ToLower(s)
}
