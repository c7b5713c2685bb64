package analyses

import (
	"context"
	"errors"
	"net/http"

	"resume-roaster/internal/analyses/payload"
	"resume-roaster/internal/llm"
	"resume-roaster/internal/ratelimit"
)

var (
	ErrInputTooShort     = errors.New("input too short")
	ErrInputTooLong      = errors.New("input too long")
	ErrSecurityRejected  = errors.New("security rejected")
	ErrAssemblyInvariant = errors.New("assembly invariant violated")
)

const (
	ErrorCodeTextTooShort       = "TEXT_TOO_SHORT"
	ErrorCodeTextTooLong        = "TEXT_TOO_LONG"
	ErrorCodeSecurityRejected   = "SECURITY_REJECTED"
	ErrorCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrorCodeLLMTimeout         = "LLM_TIMEOUT"
	ErrorCodeLLMUnavailable     = "LLM_UNAVAILABLE"
	ErrorCodeNoStructureFound   = "NO_STRUCTURE_FOUND"
	ErrorCodeMalformedStructure = "MALFORMED_STRUCTURE"
	ErrorCodeSchemaPrefix       = "SCHEMA_"
	ErrorCodeInternal           = "INTERNAL_ERROR"
	ErrorCodeRequestCanceled    = "REQUEST_CANCELED"
)

// StatusClientClosedRequest is the non-standard status used when the caller
// went away before the analysis finished.
const StatusClientClosedRequest = 499

const (
	msgTooShort    = "The résumé text is too short to analyze. Please provide at least 50 characters."
	msgTooLong     = "The résumé text is too long to analyze. Please keep it under 50,000 characters."
	msgSecurity    = "This document could not be analyzed because it contains content we do not accept."
	msgRateLimit   = "Too many analyses right now. Please try again later."
	msgUnavailable = "Analysis temporarily unavailable. Please try again in a few minutes."
	msgBadOutput   = "We could not produce a valid analysis for this résumé. Please try again."
	msgInternal    = "Something went wrong on our side. Please try again."
	msgCanceled    = "The request was canceled."
)

// failure is the public face of an error: a stable code, an HTTP status and
// a fixed message that never echoes model or system detail.
type failure struct {
	code    string
	status  int
	message string
}

func classifyFailure(err error) failure {
	var (
		validation *payload.ValidationError
		upstream   *llm.UpstreamError
	)
	switch {
	case err == nil:
		return failure{ErrorCodeInternal, http.StatusInternalServerError, msgInternal}
	case errors.Is(err, ErrInputTooShort):
		return failure{ErrorCodeTextTooShort, http.StatusBadRequest, msgTooShort}
	case errors.Is(err, ErrInputTooLong):
		return failure{ErrorCodeTextTooLong, http.StatusBadRequest, msgTooLong}
	case errors.Is(err, ErrSecurityRejected):
		return failure{ErrorCodeSecurityRejected, http.StatusUnprocessableEntity, msgSecurity}
	case errors.Is(err, ratelimit.ErrHourlyCapExceeded), errors.Is(err, ratelimit.ErrSpacingDeadline):
		return failure{ErrorCodeRateLimitExceeded, http.StatusTooManyRequests, msgRateLimit}
	case errors.Is(err, context.Canceled):
		return failure{ErrorCodeRequestCanceled, StatusClientClosedRequest, msgCanceled}
	case errors.As(err, &upstream):
		if upstream.Kind == llm.KindTimeout {
			return failure{ErrorCodeLLMTimeout, http.StatusServiceUnavailable, msgUnavailable}
		}
		return failure{ErrorCodeLLMUnavailable, http.StatusServiceUnavailable, msgUnavailable}
	case errors.Is(err, context.DeadlineExceeded):
		return failure{ErrorCodeLLMTimeout, http.StatusServiceUnavailable, msgUnavailable}
	case errors.Is(err, payload.ErrNoStructureFound):
		return failure{ErrorCodeNoStructureFound, http.StatusBadGateway, msgBadOutput}
	case errors.Is(err, payload.ErrMalformedStructure):
		return failure{ErrorCodeMalformedStructure, http.StatusBadGateway, msgBadOutput}
	case errors.As(err, &validation):
		return failure{ErrorCodeSchemaPrefix + validation.Code, http.StatusBadGateway, msgBadOutput}
	}
	return failure{ErrorCodeInternal, http.StatusInternalServerError, msgInternal}
}
