package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestLoginRequiredMatchesForbidden(t *testing.T) {
	err := fmt.Errorf("create question: %w", LoginRequired())
	if !errors.Is(err, ErrLoginRequired) {
		t.Error("expected ErrLoginRequired")
	}
	if !errors.Is(err, ErrForbidden) {
		t.Error("login required should also match ErrForbidden")
	}
	if CodeOf(err) != CodeLoginRequired {
		t.Errorf("code = %q", CodeOf(err))
	}
}

func TestForbiddenIsNotLoginRequired(t *testing.T) {
	err := Forbidden(CodeNotQuestionAuthor, "only the author may accept")
	if errors.Is(err, ErrLoginRequired) {
		t.Error("plain forbidden must not match ErrLoginRequired")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("database is locked")
	err := Wrap(ErrTransient, CodeStoreBusy, "store busy", cause)
	if !errors.Is(err, cause) || !errors.Is(err, ErrTransient) {
		t.Error("wrap should expose both kind and cause")
	}
	if err.Error() != "store busy: database is locked" {
		t.Errorf("message = %q", err.Error())
	}
}
