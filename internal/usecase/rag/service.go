// Package rag composes retrieval, prompt assembly and generation into one
// question-answering call.
package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/domain/prompt"
	"github.com/kailas-cloud/vecrag/internal/domain/search/result"
	"github.com/kailas-cloud/vecrag/internal/logger"
)

// DefaultTopK is the number of retrieved passages placed into the prompt.
const DefaultTopK = 3

// Answer is the outcome of one pipeline run.
type Answer struct {
	Context  string `json:"context"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Trace exposes every intermediate stage of a run.
type Trace struct {
	ID       string
	Question string
	Hits     []result.Result
	Context  string
	Prompt   string
	Answer   string
}

// Request overrides per-call settings. Zero fields fall back to the service defaults.
type Request struct {
	Collection string
	Query      string
	TopK       int
}

// Service runs Retriever -> Augmenter -> Generator. It holds no per-call state.
type Service struct {
	retriever  Retriever
	generator  Generator
	collection string
	topK       int
	template   *prompt.Template
	logger     *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTopK sets how many passages are retrieved. Non-positive values keep the default.
func WithTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithTemplate replaces the default prompt template.
func WithTemplate(t *prompt.Template) Option {
	return func(s *Service) {
		if t != nil {
			s.template = t
		}
	}
}

// New creates a pipeline answering from collection.
func New(retriever Retriever, generator Generator, collection string, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		retriever:  retriever,
		generator:  generator,
		collection: collection,
		topK:       DefaultTopK,
		template:   prompt.Default(),
		logger:     logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Collection returns the default collection name.
func (s *Service) Collection() string { return s.collection }

// Answer retrieves context for query from the default collection and asks the model.
func (s *Service) Answer(ctx context.Context, query string) (Answer, error) {
	tr, err := s.Run(ctx, Request{Query: query})
	if err != nil {
		return Answer{}, err
	}
	return Answer{Context: tr.Context, Question: tr.Question, Answer: tr.Answer}, nil
}

// Trace is Answer with the scored hits and the rendered prompt kept.
func (s *Service) Trace(ctx context.Context, query string) (Trace, error) {
	return s.Run(ctx, Request{Query: query})
}

// Run executes the pipeline for req. The first failing stage aborts the run.
func (s *Service) Run(ctx context.Context, req Request) (Trace, error) {
	collection := req.Collection
	if collection == "" {
		collection = s.collection
	}
	k := req.TopK
	if k <= 0 {
		k = s.topK
	}

	tr := Trace{ID: uuid.NewString(), Question: req.Query}
	ctx, log := logger.With(ctx, s.logger,
		zap.String("trace_id", tr.ID),
		zap.String("collection", collection),
	)
	start := time.Now()

	hits, err := s.retriever.RetrieveScored(ctx, collection, req.Query, k)
	if err != nil {
		log.Error("Retrieval stage failed", zap.Error(err))
		return tr, fmt.Errorf("retrieve: %w", err)
	}
	tr.Hits = hits
	tr.Context = prompt.FormatContext(result.Contents(hits))

	rendered, err := s.template.Render(map[string]string{
		prompt.VarContext:  tr.Context,
		prompt.VarQuestion: req.Query,
	})
	if err != nil {
		log.Error("Augmentation stage failed", zap.Error(err))
		return tr, fmt.Errorf("render prompt: %w", err)
	}
	tr.Prompt = rendered

	answer, err := s.generator.Generate(ctx, rendered)
	if err != nil {
		log.Error("Generation stage failed", zap.Error(err))
		return tr, fmt.Errorf("generate answer: %w", err)
	}
	tr.Answer = answer

	log.Info("Question answered",
		zap.Int("hits", len(hits)),
		zap.Int("prompt_len", len(rendered)),
		zap.Duration("duration", time.Since(start)),
	)
	return tr, nil
}
