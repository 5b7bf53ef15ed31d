package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-sod/knn/internal/logging"
)

const ContentTypeJSON = "application/json"

func DecodeErr(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		syntaxErr      *json.SyntaxError
		unmarshalError *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &syntaxErr):
		RespBadRequest(ctx, w, "malformed json at position %v", syntaxErr.Offset)
	case errors.Is(err, io.ErrUnexpectedEOF):
		RespBadRequest(ctx, w, "malformed json")
	case errors.As(err, &unmarshalError):
		RespBadRequest(ctx, w, "invalid value %v at position %v", unmarshalError.Field, unmarshalError.Offset)
	case strings.HasPrefix(err.Error(), "json: unknown field"):
		fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
		RespBadRequest(ctx, w, "unknown field %s", fieldName)
	case errors.Is(err, io.EOF):
		RespBadRequest(ctx, w, "body must not be empty")
	case err.Error() == "http: request body too large":
		RespError(w, http.StatusRequestEntityTooLarge, "request body too large")
	default:
		RespInternalError(ctx, w, "failed to decode json %v", err)
	}
}

// DecodeJSON checks method and content type and decodes the body into v, rejecting unknown
// fields. It writes the error response itself and reports whether the handler may go on.
func DecodeJSON(ctx context.Context, w http.ResponseWriter, r *http.Request, maxBodyBytes int64, v interface{}) bool {
	logger := logging.FromContext(ctx)
	if r.Method != http.MethodPost {
		logger.Debugf("method %v is not allowed", r.Method)
		RespError(w, http.StatusMethodNotAllowed, "method %v is not allowed", r.Method)
		return false
	}
	if t := r.Header.Get("content-type"); !strings.HasPrefix(t, ContentTypeJSON) {
		logger.Debugf("content-type %q is not %s", t, ContentTypeJSON)
		RespError(w, http.StatusUnsupportedMediaType, "content-type is not %s", ContentTypeJSON)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	d := json.NewDecoder(r.Body)
	d.DisallowUnknownFields()
	if err := d.Decode(v); err != nil {
		DecodeErr(ctx, w, err)
		return false
	}
	return true
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// RespError writes {"error": msg} with code, msg formatted from format and args.
func RespError(w http.ResponseWriter, code int, format string, args ...interface{}) {
	body, _ := json.Marshal(ErrorBody{Error: fmt.Sprintf(format, args...)})
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

func RespBadRequest(ctx context.Context, w http.ResponseWriter, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logging.FromContext(ctx).Debug(msg)
	RespError(w, http.StatusBadRequest, "%s", msg)
}

// RespInternalError logs the formatted cause and answers a generic 500.
func RespInternalError(ctx context.Context, w http.ResponseWriter, format string, args ...interface{}) {
	logging.FromContext(ctx).Errorf(format, args...)
	RespError(w, http.StatusInternalServerError, "internal error")
}

func RespJSON(ctx context.Context, w http.ResponseWriter, code int, v interface{}) {
	bytes, err := json.Marshal(v)
	if err != nil {
		RespInternalError(ctx, w, "failed to encode output json %v", err)
		return
	}
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(code)
	_, _ = w.Write(bytes)
}
