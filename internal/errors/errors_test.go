package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/copyleftdev/egoserver/internal/optimization"
)

func TestFrom(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"configuration", optimization.NewError("bad").WithKind(optimization.KindConfiguration), http.StatusBadRequest, "invalid_configuration"},
		{"infeasible", optimization.NewError("outside").WithKind(optimization.KindInfeasible), http.StatusUnprocessableEntity, "infeasible"},
		{"evaluation", optimization.NewError("nan").WithKind(optimization.KindEvaluation), http.StatusInternalServerError, "evaluation_failed"},
		{"refit", optimization.NewError("singular").WithKind(optimization.KindRefit), http.StatusInternalServerError, "refit_failed"},
		{"wrapped kind", fmt.Errorf("run: %w", optimization.NewError("bad").WithKind(optimization.KindConfiguration)), http.StatusBadRequest, "invalid_configuration"},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable, "cancelled"},
		{"client error", NotFound("no run"), http.StatusNotFound, "not_found"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := From(tt.err)
			require.NotNil(t, e)
			assert.Equal(t, tt.status, e.Status)
			assert.Equal(t, tt.code, e.Code)
		})
	}

	assert.Nil(t, From(nil))
}

func TestErrorMessage(t *testing.T) {
	err := BadRequest("invalid body", fmt.Errorf("unexpected EOF"))
	assert.Equal(t, "bad_request: invalid body: unexpected EOF", err.Error())
	assert.EqualError(t, err.Unwrap(), "unexpected EOF")
}

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, fmt.Errorf("database password is hunter2"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal", body["error"].Code)
	assert.NotContains(t, body["error"].Message, "hunter2")
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	handler := RecoveryMiddleware(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("surrogate exploded")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/optimize?x=1", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	entries := logs.FilterMessage("Recovered from panic").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "surrogate exploded", fields["panic"])
	assert.Equal(t, "/api/v1/optimize", fields["path"])
	assert.Equal(t, "x=1", fields["query"])
}
