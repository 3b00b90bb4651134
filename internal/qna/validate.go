package qna

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/clubqa/internal/apperr"
)

const (
	minTitleRunes = 10
	minBodyRunes  = 20
)

var (
	errTitleTooShort = validation.NewError(apperr.CodeTitleTooShort, "title must be at least 10 characters")
	errBodyTooShort  = validation.NewError(apperr.CodeBodyTooShort, "body must be at least 20 characters")
	errEmptyBody     = validation.NewError(apperr.CodeEmptyBody, "body must not be empty")
)

// validateTitle trims title and checks the minimum length in characters.
func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	err := validation.Validate(title,
		validation.Required.ErrorObject(errTitleTooShort),
		validation.RuneLength(minTitleRunes, 0).ErrorObject(errTitleTooShort),
	)
	return title, toAppErr(err)
}

// validateQuestionBody trims body and checks the minimum length in characters.
func validateQuestionBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	err := validation.Validate(body,
		validation.Required.ErrorObject(errBodyTooShort),
		validation.RuneLength(minBodyRunes, 0).ErrorObject(errBodyTooShort),
	)
	return body, toAppErr(err)
}

// validateText checks answer and comment bodies.
func validateText(body string) (string, error) {
	body = strings.TrimSpace(body)
	err := validation.Validate(body, validation.Required.ErrorObject(errEmptyBody))
	return body, toAppErr(err)
}

// toAppErr converts a coded ozzo error into an apperr validation error.
func toAppErr(err error) error {
	if err == nil {
		return nil
	}
	var ve validation.Error
	if errors.As(err, &ve) {
		return apperr.Validation(ve.Code(), ve.Message())
	}
	return apperr.Wrap(apperr.ErrValidation, "", err.Error(), err)
}
