package chi

import (
	"encoding/json"
	"net/http"
	"strconv"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/domain"
	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
	healthuc "github.com/kailas-cloud/vecrag/internal/usecase/health"
	raguc "github.com/kailas-cloud/vecrag/internal/usecase/rag"
)

// Server serves the HTTP API over the RAG services.
type Server struct {
	collections   CollectionService
	indexer       Indexer
	retriever     Retriever
	pipeline      Pipeline
	health        HealthChecker
	defaults      domain.VectorConfig
	defaultTopK   int
	logger        *zap.Logger
	errorHandlers []errorHandler
	metrics       http.Handler
}

// NewServer creates an HTTP API server. defaults supply dimensions and metric for
// collections created without an explicit configuration.
func NewServer(
	collections CollectionService,
	indexer Indexer,
	retriever Retriever,
	pipeline Pipeline,
	health HealthChecker,
	defaults domain.VectorConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		collections:   collections,
		indexer:       indexer,
		retriever:     retriever,
		pipeline:      pipeline,
		health:        health,
		defaults:      defaults,
		defaultTopK:   raguc.DefaultTopK,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
		metrics:       promhttp.Handler(),
	}
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router(apiKeys []string, mws ...func(http.Handler) http.Handler) http.Handler {
	r := gochi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(RequestID)
	r.Use(AccessLog(s.logger))
	r.Use(APIKeyAuth(apiKeys))
	for _, mw := range mws {
		r.Use(mw)
	}

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/collections/{name}", func(r gochi.Router) {
		r.Put("/", s.CreateCollection)
		r.Get("/", s.GetCollection)
		r.Delete("/", s.DeleteCollection)
		r.Post("/documents", s.IndexDocuments)
		r.Get("/points/{id}", s.GetPoint)
		r.Post("/retrieve", s.Retrieve)
	})

	r.Post("/answer", s.Answer)
	r.Post("/answer/trace", s.AnswerTrace)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	})
	return r
}

// CreateCollection handles PUT /collections/{name}. Repeating the call with the
// same configuration is a no-op; a different configuration yields 409.
func (s *Server) CreateCollection(w http.ResponseWriter, r *http.Request) {
	name := gochi.URLParam(r, "name")

	var req createCollectionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			s.handleError(w, r, err)
			return
		}
	}

	dims := req.Dimensions
	if dims == 0 {
		dims = s.defaults.Dimensions
	}
	metricName := req.Metric
	if metricName == "" {
		metricName = s.defaults.DistanceMetric
	}
	metric, err := domcol.ParseMetric(metricName)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	existed, err := s.collections.Exists(r.Context(), name)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	col, err := s.collections.Create(r.Context(), name, dims, metric)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	status := http.StatusOK
	if !existed {
		status = http.StatusCreated
		w.Header().Set("Location", "/collections/"+col.Name())
	}
	writeJSON(w, status, collectionToResponse(col))
}

// GetCollection handles GET /collections/{name}.
func (s *Server) GetCollection(w http.ResponseWriter, r *http.Request) {
	name := gochi.URLParam(r, "name")

	col, err := s.collections.Get(r.Context(), name)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	resp := collectionToResponse(col)
	if n, err := s.collections.Count(r.Context(), name); err == nil {
		resp.Points = &n
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteCollection handles DELETE /collections/{name}.
func (s *Server) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := s.collections.Delete(r.Context(), gochi.URLParam(r, "name")); err != nil {
		s.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPoint handles GET /collections/{name}/points/{id}.
func (s *Server) GetPoint(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(gochi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "point id must be an unsigned integer")
		return
	}

	p, err := s.collections.GetPoint(r.Context(), gochi.URLParam(r, "name"), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pointToResponse(p))
}

// IndexDocuments handles POST /collections/{name}/documents.
func (s *Server) IndexDocuments(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	report, err := s.indexer.Index(ctx, gochi.URLParam(r, "name"), documentsFromRequest(req.Documents))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, report)
}

// Retrieve handles POST /collections/{name}/retrieve.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	k := req.K
	if k == 0 {
		k = s.defaultTopK
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	hits, err := s.retriever.RetrieveScored(ctx, gochi.URLParam(r, "name"), req.Query, k)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, retrieveResponse{Hits: hitsToResponse(hits)})
}

// Answer handles POST /answer.
func (s *Server) Answer(w http.ResponseWriter, r *http.Request) {
	tr, usage, ok := s.runPipeline(w, r)
	if !ok {
		return
	}
	setUsageHeaders(w, usage)
	w.Header().Set("X-Trace-ID", tr.ID)
	writeJSON(w, http.StatusOK, raguc.Answer{Context: tr.Context, Question: tr.Question, Answer: tr.Answer})
}

// AnswerTrace handles POST /answer/trace.
func (s *Server) AnswerTrace(w http.ResponseWriter, r *http.Request) {
	tr, usage, ok := s.runPipeline(w, r)
	if !ok {
		return
	}
	setUsageHeaders(w, usage)
	w.Header().Set("X-Trace-ID", tr.ID)
	writeJSON(w, http.StatusOK, traceToResponse(tr))
}

func (s *Server) runPipeline(w http.ResponseWriter, r *http.Request) (raguc.Trace, *domain.Usage, bool) {
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleError(w, r, err)
		return raguc.Trace{}, nil, false
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	tr, err := s.pipeline.Run(ctx, raguc.Request{
		Collection: req.Collection,
		Query:      req.Query,
		TopK:       req.TopK,
	})
	if err != nil {
		if tr.ID != "" {
			w.Header().Set("X-Trace-ID", tr.ID)
		}
		s.handleError(w, r, err)
		return raguc.Trace{}, nil, false
	}
	return tr, usage, true
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	s.metrics.ServeHTTP(w, r)
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.Usage) {
	if usage == nil || !usage.Used {
		return
	}
	w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.EmbeddingTokens))
	if usage.GenerationTokens > 0 {
		w.Header().Set("X-Generation-Tokens", strconv.Itoa(usage.GenerationTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
