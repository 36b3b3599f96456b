package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/exampledb/api"
	"github.com/ruteri/exampledb/interfaces"
)

// RequestError provides structured error information for HTTP responses.
// It includes both an HTTP status code and the underlying error.
type RequestError struct {
	// StatusCode is the HTTP status code to return.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error returns the error message from the underlying error.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

// Handler translates HTTP requests into store operations.
type Handler struct {
	db           interfaces.ExampleDatabase
	maxValueSize int64
	log          *slog.Logger
}

// NewHandler creates a handler serving db that rejects values larger than
// maxValueSize bytes.
func NewHandler(db interfaces.ExampleDatabase, maxValueSize int64, log *slog.Logger) *Handler {
	return &Handler{
		db:           db,
		maxValueSize: maxValueSize,
		log:          log,
	}
}

// HandleSave stores the request body under the key in the URL.
//
// URL format: PUT /api/v1/keys/{key}
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	key, value, err := h.parseKeyAndValue(r, "key")
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.db.Save(r.Context(), key, value); err != nil {
		h.log.Error("Failed to save example", slog.String("key", key.String()), "err", err)
		h.writeError(w, &RequestError{StatusCode: http.StatusInternalServerError, Err: err})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleFetch returns all values stored under the key in the URL.
//
// URL format: GET /api/v1/keys/{key}
func (h *Handler) HandleFetch(w http.ResponseWriter, r *http.Request) {
	key, err := parseKey(r, "key")
	if err != nil {
		h.writeError(w, err)
		return
	}

	values := make([][]byte, 0)
	for v := range h.db.Fetch(r.Context(), key) {
		values = append(values, v)
	}

	// Stable output keeps responses comparable across replicas.
	slices.SortFunc(values, func(a, b []byte) int {
		return slices.Compare(a, b)
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(api.FetchResponse{Values: values}); err != nil {
		h.log.Error("Failed to encode fetch response", "err", err)
	}
}

// HandleDelete removes the request body from the key in the URL.
//
// URL format: DELETE /api/v1/keys/{key}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	key, value, err := h.parseKeyAndValue(r, "key")
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.db.Delete(r.Context(), key, value); err != nil {
		h.log.Warn("Failed to delete example", slog.String("key", key.String()), "err", err)
		h.writeError(w, &RequestError{StatusCode: http.StatusInternalServerError, Err: err})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleMove moves the request body from one key to another.
//
// URL format: POST /api/v1/keys/{key}/move/{dest}
func (h *Handler) HandleMove(w http.ResponseWriter, r *http.Request) {
	src, value, err := h.parseKeyAndValue(r, "key")
	if err != nil {
		h.writeError(w, err)
		return
	}

	dest, err := parseKey(r, "dest")
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.db.Move(r.Context(), src, dest, value); err != nil {
		h.log.Error("Failed to move example",
			slog.String("src", src.String()),
			slog.String("dest", dest.String()),
			"err", err)
		h.writeError(w, &RequestError{StatusCode: http.StatusInternalServerError, Err: err})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseKey(r *http.Request, param string) (interfaces.Key, error) {
	key, err := interfaces.NewKeyFromHex(chi.URLParam(r, param))
	if err != nil {
		return nil, &RequestError{
			StatusCode: http.StatusBadRequest,
			Err:        fmt.Errorf("invalid %s: %w", param, err),
		}
	}
	return key, nil
}

func (h *Handler) parseKeyAndValue(r *http.Request, param string) (interfaces.Key, interfaces.Value, error) {
	key, err := parseKey(r, param)
	if err != nil {
		return nil, nil, err
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxValueSize+1))
	if err != nil {
		return nil, nil, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	if int64(len(body)) > h.maxValueSize {
		return nil, nil, &RequestError{StatusCode: http.StatusRequestEntityTooLarge, Err: errors.New("value too large")}
	}

	return key, body, nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		status = reqErr.StatusCode
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(api.ErrorResponse{Error: err.Error()}); encErr != nil {
		h.log.Debug("Failed to write error response", "err", encErr)
	}
}
