package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/portfolio-kpi/internal/domain/portfolio"
	"github.com/rpggio/portfolio-kpi/internal/metrics"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
}

// MapError maps domain errors to MCP error codes. Unknown errors map to nil.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, metrics.ErrInvalidArgument):
		return &APIError{Code: "INVALID_ARGUMENT", Message: err.Error(), RecoveryHint: "Check the arguments against the tool description"}
	case errors.Is(err, metrics.ErrDataFormat):
		return &APIError{Code: "DATA_FORMAT", Message: err.Error(), RecoveryHint: "Fix the budget amount in the source data"}
	case errors.Is(err, portfolio.ErrProjectNotFound):
		return &APIError{Code: "PROJECT_NOT_FOUND", Message: "project not found", RecoveryHint: "Check the project id with get_kpis level=project"}
	case errors.Is(err, portfolio.ErrDomainNotFound):
		return &APIError{Code: "DOMAIN_NOT_FOUND", Message: "domain not found", RecoveryHint: "Call list_domains"}
	case errors.Is(err, portfolio.ErrProgrammeNotFound):
		return &APIError{Code: "PROGRAMME_NOT_FOUND", Message: "programme not found", RecoveryHint: "Call get_domain_summary for the programme list"}
	case errors.Is(err, portfolio.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	default:
		return nil
	}
}

func toolError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
