package note

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a pipeline failure for the caller-facing response
type Kind int

const (
	// KindClientInput covers unsupported formats, oversized payloads and
	// unparseable URLs. Maps to a 4xx status.
	KindClientInput Kind = iota

	// KindUpstream covers non-success responses, transport failures and
	// malformed bodies from any third-party service.
	KindUpstream

	// KindGenerationContract covers responses where the generation service
	// violated the forced-tool contract: no tool call, wrong tool,
	// unparseable arguments, or a missing required field.
	KindGenerationContract

	// KindIncompleteResult is the defensive post-assembly check: a required
	// output field missing even though the upstream calls succeeded.
	KindIncompleteResult
)

func (k Kind) String() string {
	switch k {
	case KindClientInput:
		return "client_input"
	case KindUpstream:
		return "upstream"
	case KindGenerationContract:
		return "generation_contract"
	case KindIncompleteResult:
		return "incomplete_result"
	}
	return "unknown"
}

// Error is a classified pipeline error. Status carries the upstream HTTP
// status when one exists; zero otherwise.
type Error struct {
	Kind   Kind
	Detail string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error onto a caller-visible status code
func (e *Error) HTTPStatus() int {
	if e.Kind == KindClientInput {
		return http.StatusBadRequest
	}
	if e.Status >= 500 && e.Status <= 599 {
		return e.Status
	}
	return http.StatusBadGateway
}

// ClientInputError builds a client-error with a printf-style detail message
func ClientInputError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindClientInput, Detail: fmt.Sprintf(format, args...)}
}

// UpstreamError wraps a third-party failure, keeping the upstream status for
// diagnosability
func UpstreamError(status int, detail string, err error) *Error {
	return &Error{Kind: KindUpstream, Detail: detail, Status: status, Err: err}
}

// GenerationContractError reports a violation of the forced-tool contract
func GenerationContractError(detail string, err error) *Error {
	return &Error{Kind: KindGenerationContract, Detail: detail, Err: err}
}

// AsError extracts a classified *Error from err, degrading anything
// unclassified to a generic upstream error so callers always see a
// structured failure.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindUpstream, Detail: err.Error(), Err: err}
}
