package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/birdmatch/internal/domain"
)

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error codes exposed on the wire.
const (
	CodeValidation        ErrorCode = "VALIDATION_ERROR"
	CodeSearchFailed      ErrorCode = "SEARCH_FAILED"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeRateLimited       ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeSearchRateLimited ErrorCode = "SEARCH_RATE_LIMIT_EXCEEDED"
	CodeUnsupportedMedia  ErrorCode = "UNSUPPORTED_MEDIA_TYPE"
	CodeMethodNotAllowed  ErrorCode = "METHOD_NOT_ALLOWED"
	CodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	CodeInternal          ErrorCode = "INTERNAL_ERROR"
)

const (
	searchUnavailableMessage = "Search service temporarily unavailable. Please try again."
	internalMessage          = "An unexpected error occurred"
)

// ErrorResponse is the error envelope: {"error": {...}}.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the code, a caller-safe message and the offending field, if any.
type ErrorBody struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrSpeciesNotFound, http.StatusNotFound, CodeNotFound, "Species not found"),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, CodeSearchFailed, searchUnavailableMessage),
		sentinelHandler(domain.ErrRateLimited,
			http.StatusTooManyRequests, CodeRateLimited, "Too many requests, please try again later."),
	}
}

// validationHandler reports the offending field and the validation message.
func validationHandler(w http.ResponseWriter, err error) bool {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	writeErrorField(w, http.StatusBadRequest, CodeValidation, ve.Message, ve.Field)
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The message is fixed so wrapped details never reach the caller.
func sentinelHandler(sentinel error, status int, code ErrorCode, message string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, message)
		return true
	}
}

// fallback is the response for errors no handler claims.
type fallback struct {
	code    ErrorCode
	message string
}

var (
	searchFallback   = fallback{code: CodeSearchFailed, message: searchUnavailableMessage}
	internalFallback = fallback{code: CodeInternal, message: internalMessage}
)

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error, fb fallback) {
	log := s.requestLogger(r)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("Request failed", zap.Error(err))
			return
		}
	}
	log.Error("Internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, fb.code, fb.message)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeErrorField(w, status, code, message, "")
}

func writeErrorField(w http.ResponseWriter, status int, code ErrorCode, message, field string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorBody{Code: code, Message: message, Field: field}})
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}
