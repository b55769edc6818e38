package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kailas-cloud/vecrag/internal/domain"
	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
	"github.com/kailas-cloud/vecrag/internal/domain/point"
	"github.com/kailas-cloud/vecrag/internal/domain/search/result"
	raguc "github.com/kailas-cloud/vecrag/internal/usecase/rag"
)

const maxBodyBytes = 4 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// --- Requests ---

type createCollectionRequest struct {
	Dimensions int    `json:"dimensions" validate:"omitempty,min=1,max=16000"`
	Metric     string `json:"metric" validate:"omitempty,oneof=cosine dot euclidean"`
}

type documentItem struct {
	ID   uint64 `json:"id"`
	Text string `json:"text" validate:"required"`
}

type indexRequest struct {
	Documents []documentItem `json:"documents" validate:"max=1000,dive"`
}

type retrieveRequest struct {
	Query string `json:"query" validate:"required"`
	K     int    `json:"k" validate:"omitempty,min=1,max=100"`
}

type answerRequest struct {
	Query      string `json:"query" validate:"required"`
	Collection string `json:"collection" validate:"omitempty,max=64"`
	TopK       int    `json:"top_k" validate:"omitempty,min=1,max=100"`
}

// --- Responses ---

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type collectionResponse struct {
	Name       string    `json:"name"`
	Dimensions int       `json:"dimensions"`
	Metric     string    `json:"metric"`
	CreatedAt  time.Time `json:"created_at"`
	Points     *int      `json:"points,omitempty"`
}

type hitResponse struct {
	ID    uint64  `json:"id"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

type pointResponse struct {
	ID      uint64         `json:"id"`
	Text    string         `json:"text"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

type retrieveResponse struct {
	Hits []hitResponse `json:"hits"`
}

type traceResponse struct {
	TraceID  string        `json:"trace_id"`
	Question string        `json:"question"`
	Hits     []hitResponse `json:"hits"`
	Context  string        `json:"context"`
	Prompt   string        `json:"prompt"`
	Answer   string        `json:"answer"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// --- Decoding ---

// requestError is a malformed or invalid request body.
type requestError struct {
	code    string
	message string
	fields  map[string]string
}

func (e *requestError) Error() string { return e.message }

// decodeJSON reads a size-limited JSON body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &requestError{code: codeBadRequest, message: "request body is required"}
		}
		return &requestError{code: codeBadRequest, message: "invalid request body: " + err.Error()}
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &requestError{code: codeValidationFailed, message: err.Error()}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldName(fe)] = fieldMessage(fe)
	}
	return &requestError{code: codeValidationFailed, message: "request validation failed", fields: fields}
}

// fieldName turns "answerRequest.TopK" into "top_k" style names clients sent.
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return toSnake(ns)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return fmt.Sprintf("failed on %q", fe.Tag())
	}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && s[i-1] != '.' && s[i-1] != '[' {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// --- Converters ---

func collectionToResponse(c domcol.Collection) collectionResponse {
	return collectionResponse{
		Name:       c.Name(),
		Dimensions: c.Dimensions(),
		Metric:     string(c.Metric()),
		CreatedAt:  time.UnixMilli(c.CreatedAt()).UTC(),
	}
}

func documentsFromRequest(items []documentItem) []domain.Document {
	docs := make([]domain.Document, len(items))
	for i, it := range items {
		docs[i] = domain.Document{ID: it.ID, Text: it.Text}
	}
	return docs
}

func hitsToResponse(hits []result.Result) []hitResponse {
	out := make([]hitResponse, len(hits))
	for i := range hits {
		out[i] = hitResponse{ID: hits[i].ID(), Score: hits[i].Score(), Text: hits[i].Content()}
	}
	return out
}

func pointToResponse(p point.Point) pointResponse {
	return pointResponse{ID: p.ID(), Text: p.Content(), Vector: p.Vector(), Payload: p.Payload()}
}

func traceToResponse(tr raguc.Trace) traceResponse {
	return traceResponse{
		TraceID:  tr.ID,
		Question: tr.Question,
		Hits:     hitsToResponse(tr.Hits),
		Context:  tr.Context,
		Prompt:   tr.Prompt,
		Answer:   tr.Answer,
	}
}
