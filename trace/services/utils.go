package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"tracehub/utils"
	"unicode/utf8"
)

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func CodedError(err error, code int) error {
	return &codedError{err: err, code: code}
}

func GetResponseCode(err error) int {
	var cerr *codedError
	if errors.As(err, &cerr) {
		return cerr.code
	}
	slog.Error("non coded error passed to GetResponseCode", "error", err)
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	utils.WriteErrorDetail(w, err.Error(), GetResponseCode(err))
}

// checkFieldLen counts characters, not bytes, matching the varchar lengths
// the columns are declared with.
func checkFieldLen(name, value string, maxLen int) error {
	if utf8.RuneCountInString(value) > maxLen {
		return fmt.Errorf("field '%v' exceeds maximum length of %v", name, maxLen)
	}
	return nil
}

func checkRequiredField(name, value string, maxLen int) error {
	if value == "" {
		return fmt.Errorf("field '%v' is required", name)
	}
	return checkFieldLen(name, value, maxLen)
}
