package chi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/logger"
)

// Error codes returned in errorResponse.Code.
const (
	codeBadRequest           = "bad_request"
	codeValidationFailed     = "validation_failed"
	codeUnauthorized         = "unauthorized"
	codeCollectionNotFound   = "collection_not_found"
	codePointNotFound        = "point_not_found"
	codeCollectionExists     = "collection_already_exists"
	codeDimensionMismatch    = "vector_dimension_mismatch"
	codeEncoding             = "encoding_error"
	codeTemplateVariable     = "missing_template_variable"
	codeEmbeddingUnavailable = "embedding_unavailable"
	codeGenerationFailed     = "generation_unavailable"
	codeGenerationTimeout    = "generation_timeout"
	codeStoreUnavailable     = "store_unavailable"
	codeStoreTimeout         = "store_timeout"
	codeInternal             = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The client only sees the sentinel text, never the wrapped chain.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

// dimensionMismatchHandler reports both lengths.
func dimensionMismatchHandler(w http.ResponseWriter, err error) bool {
	var dm *domain.DimensionMismatchError
	if !errors.As(err, &dm) {
		return false
	}
	writeError(w, http.StatusBadRequest, codeDimensionMismatch, dm.Error())
	return true
}

// missingVariableHandler names the unbound placeholder.
func missingVariableHandler(w http.ResponseWriter, err error) bool {
	var mv *domain.MissingVariableError
	if !errors.As(err, &mv) {
		return false
	}
	writeError(w, http.StatusUnprocessableEntity, codeTemplateVariable, mv.Error())
	return true
}

// requestErrorHandler renders decode and validation failures.
func requestErrorHandler(w http.ResponseWriter, err error) bool {
	var re *requestError
	if !errors.As(err, &re) {
		return false
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Code: re.code, Message: re.message, Fields: re.fields})
	return true
}

// defaultErrorHandlers is ordered most specific first: several failures wrap two sentinels.
func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		requestErrorHandler,
		dimensionMismatchHandler,
		sentinelHandler(domain.ErrPointNotFound, http.StatusNotFound, codePointNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeCollectionNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, codeCollectionExists),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusBadRequest, codeDimensionMismatch),
		sentinelHandler(domain.ErrInvalidSchema, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrEncoding, http.StatusBadRequest, codeEncoding),
		missingVariableHandler,
		sentinelHandler(domain.ErrMissingVariable, http.StatusUnprocessableEntity, codeTemplateVariable),
		sentinelHandler(domain.ErrModelUnavailable, http.StatusBadGateway, codeEmbeddingUnavailable),
		sentinelHandler(domain.ErrGenerationTimeout, http.StatusGatewayTimeout, codeGenerationTimeout),
		sentinelHandler(domain.ErrGenerationUnavailable, http.StatusBadGateway, codeGenerationFailed),
		sentinelHandler(domain.ErrStoreTimeout, http.StatusGatewayTimeout, codeStoreTimeout),
		sentinelHandler(domain.ErrWriteFailure, http.StatusServiceUnavailable, codeStoreUnavailable),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, codeStoreUnavailable),
	}
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("Request failed", zap.Error(err))
			return
		}
	}
	log.Error("Internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}
