package app

import (
	"fmt"
	"net/http"
)

// DomainError carries the HTTP status and the {code, error, details}
// payload for failures the service detects itself.
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

func validationError(message string, details any) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, details)
}

func sectionNotFound(sectionID, version string) *DomainError {
	return domainError(http.StatusNotFound, "SECTION_NOT_FOUND", "Section not found", map[string]any{"sectionId": sectionID, "version": version})
}
