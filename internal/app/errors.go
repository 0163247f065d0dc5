package app

import (
	"fmt"
	"net/http"
)

// DomainError is an API-visible failure: the HTTP status to report, a stable
// machine code, and a human message. Details carries optional structured
// context such as the offending field.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// notFound hides both missing rows and rows owned by another user behind the
// same response, so the API never confirms that someone else's content exists.
func notFound(message string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", message, nil)
}
