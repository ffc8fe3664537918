package matcher

import (
	"errors"
	"fmt"
)

// Error codes reported in the result envelope. They are stable.
const (
	CodeMatcherError       = "PR_TICKET_MATCHER_ERROR"
	CodePRNotFound         = "PR_NOT_FOUND"
	CodeInvalidTicketKey   = "INVALID_TICKET_KEY"
	CodeInvalidArgument    = "INVALID_ARGUMENT"
	CodeJiraDevStatusError = "JIRA_DEV_STATUS_ERROR"
	CodeTargetedSearch     = "TARGETED_SEARCH_ERROR"
	CodeLimitedFetch       = "LIMITED_FETCH_ERROR"
	CodeBatchFetch         = "BATCH_FETCH_ERROR"
)

// Lookup stages, used to name where a request gave up.
const (
	StageDevStatus      = "dev-status"
	StageRemoteLinks    = "remote-links"
	StageTargetedSearch = "targeted-search"
	StageLimitedFetch   = "limited-fetch"
	StagePRDetail       = "pr-detail"
	StageBatchFetch     = "batch-fetch"
	StageValidate       = "validate"
	StageInternal       = "internal"
)

// Error is the typed failure returned by every public Matcher operation.
type Error struct {
	Code    string `json:"code" yaml:"code"`
	Stage   string `json:"stage,omitempty" yaml:"stage,omitempty"`
	Message string `json:"message" yaml:"message"`
	Err     error  `json:"-" yaml:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code, stage string, err error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Stage:   stage,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// InvalidArgument reports a malformed request detected outside the matcher,
// such as undecodable tool arguments.
func InvalidArgument(format string, args ...any) *Error {
	return newError(CodeInvalidArgument, StageValidate, nil, format, args...)
}

// ErrorCode returns the envelope code carried by err, or CodeMatcherError for
// errors that did not originate in the matcher.
func ErrorCode(err error) string {
	var matchErr *Error
	if errors.As(err, &matchErr) {
		return matchErr.Code
	}
	return CodeMatcherError
}

// Response is the envelope handed to callers of the CLI and tool server.
type Response struct {
	Success   bool   `json:"success" yaml:"success"`
	Data      any    `json:"data,omitempty" yaml:"data,omitempty"`
	Error     *Error `json:"error,omitempty" yaml:"error,omitempty"`
	FromCache bool   `json:"fromCache" yaml:"fromCache"`
}

// NewResponse wraps the outcome of a Matcher call in an envelope.
func NewResponse(data any, fromCache bool, err error) Response {
	if err != nil {
		var matchErr *Error
		if !errors.As(err, &matchErr) {
			matchErr = newError(CodeMatcherError, StageInternal, err, "request failed")
		}
		return Response{Success: false, Error: matchErr}
	}
	return Response{Success: true, Data: data, FromCache: fromCache}
}
