package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/openai/openai-go"
	"google.golang.org/genai"
)

// ErrorKind tags a ClassifiedError. The kinds are mutually exclusive.
type ErrorKind string

const (
	KindValidation    ErrorKind = "VALIDATION_ERROR"
	KindAuth          ErrorKind = "AUTH_ERROR"
	KindRateLimit     ErrorKind = "RATE_LIMIT_ERROR"
	KindTimeout       ErrorKind = "TIMEOUT_ERROR"
	KindModel         ErrorKind = "MODEL_ERROR"
	KindContentFilter ErrorKind = "CONTENT_FILTER_ERROR"
	KindAPI           ErrorKind = "API_ERROR"
	KindUnknown       ErrorKind = "UNKNOWN_ERROR"
)

// User-facing messages attached by Classify.
const (
	msgAuth          = "Authentication failed. Please check your API key."
	msgModel         = "The selected AI model is unavailable. Will try an alternative model."
	msgRateLimit     = "Rate limit exceeded. Please try again in a moment."
	msgTimeout       = "The request timed out. Please try again."
	msgContentFilter = "Your request was flagged by content filters. Please modify your inputs and try again."
	msgAPI           = "The AI service is experiencing issues. Please try again later."
	msgUnknown       = "An unknown error occurred while generating the document."
	msgCancelled     = "The request was cancelled."
)

// ClassifiedError is the normalized form of every failure surfaced by the
// client. StatusCode is zero when no status is known.
type ClassifiedError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

func (e *ClassifiedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Cause
}

// NewError builds a ClassifiedError with the retryability that Classify
// would assign to kind.
func NewError(kind ErrorKind, message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Kind:      kind,
		Message:   message,
		Retryable: defaultRetryable(kind),
		Cause:     cause,
	}
}

func defaultRetryable(kind ErrorKind) bool {
	switch kind {
	case KindModel, KindRateLimit, KindTimeout, KindAPI:
		return true
	default:
		return false
	}
}

// StatusCoder is implemented by errors that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

var statusPattern = regexp.MustCompile(`\b([1-5]\d{2})\b`)

// Classify maps a raw failure into a ClassifiedError. It is a pure function:
// the same input always yields the same classification. Errors that are
// already classified are returned unchanged.
func Classify(err error) *ClassifiedError {
	if err == nil {
		return nil
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, context.Canceled) {
		return &ClassifiedError{Kind: KindUnknown, Message: msgCancelled, Cause: err}
	}

	status := structuredStatus(err)
	msg := strings.ToLower(err.Error())

	// A transport-level timeout wins over keywords: the failing URL often
	// names the model.
	var kind ErrorKind
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()):
		kind = KindTimeout
	case containsAny(msg, "invalid api key", "authorization", "unauthorized"):
		kind = KindAuth
	case containsAny(msg, "model", "not found", "decommissioned"):
		kind = KindModel
	case containsAny(msg, "rate limit", "429", "too many requests") || status == 429:
		kind = KindRateLimit
	case containsAny(msg, "timeout", "timed out"):
		kind = KindTimeout
	case containsAny(msg, "content filter", "flagged", "moderation"):
		kind = KindContentFilter
	}

	if status == 0 {
		status = scrapeStatus(msg)
	}

	switch {
	case status == 401 || status == 403:
		kind = KindAuth
	case kind != "":
	case status == 429:
		kind = KindRateLimit
	case status >= 500:
		kind = KindAPI
	default:
		kind = KindUnknown
	}

	return &ClassifiedError{
		Kind:       kind,
		Message:    messageFor(kind),
		StatusCode: status,
		Retryable:  defaultRetryable(kind),
		Cause:      err,
	}
}

// KindOf returns the kind of err after classification, or "" for nil.
func KindOf(err error) ErrorKind {
	if ce := Classify(err); ce != nil {
		return ce.Kind
	}
	return ""
}

// IsRetryable reports whether err is safe to retry against the same endpoint.
func IsRetryable(err error) bool {
	if ce := Classify(err); ce != nil {
		return ce.Retryable
	}
	return false
}

func structuredStatus(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		return oaiErr.StatusCode
	}
	var gErr genai.APIError
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	var gErrPtr *genai.APIError
	if errors.As(err, &gErrPtr) && gErrPtr != nil {
		return gErrPtr.Code
	}
	return 0
}

func scrapeStatus(msg string) int {
	m := statusPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return code
}

func messageFor(kind ErrorKind) string {
	switch kind {
	case KindAuth:
		return msgAuth
	case KindModel:
		return msgModel
	case KindRateLimit:
		return msgRateLimit
	case KindTimeout:
		return msgTimeout
	case KindContentFilter:
		return msgContentFilter
	case KindAPI:
		return msgAPI
	default:
		return msgUnknown
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
