package grpcerr

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/movie-platform/internal/platform/api"
)

func decode(t *testing.T, rr *httptest.ResponseRecorder) api.APIError {
	t.Helper()
	var body api.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body.Error
}

func TestWriteHTTP_InvalidArgumentWithFields(t *testing.T) {
	err := InvalidArgument("ratings", "INVALID_SCORE", "score must be between 1 and 10", map[string]string{"score": "out of range"})
	rr := httptest.NewRecorder()
	WriteHTTP(rr, "rid", err)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	e := decode(t, rr)
	if e.Code != "INVALID_SCORE" {
		t.Fatalf("expected INVALID_SCORE, got %q", e.Code)
	}
	if e.Details["score"] != "out of range" {
		t.Fatalf("expected field violation in details, got %v", e.Details)
	}
}

func TestWriteHTTP_NotFound(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteHTTP(rr, "", NotFound("watchlist", "NOT_IN_WATCHLIST", "movie is not in the watchlist"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if e := decode(t, rr); e.Code != "NOT_IN_WATCHLIST" {
		t.Fatalf("unexpected code %q", e.Code)
	}
}

func TestWriteHTTP_Unavailable(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteHTTP(rr, "", Unavailable("content", "CONTENT_UNAVAILABLE", "content service unavailable"))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestWriteHTTP_PlainError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteHTTP(rr, "", errors.New("boom"))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestReasonAndIsNotFound(t *testing.T) {
	err := NotFound("ratings", "RATING_NOT_FOUND", "no rating")
	if Reason(err) != "RATING_NOT_FOUND" {
		t.Fatalf("unexpected reason %q", Reason(err))
	}
	if !IsNotFound(err) {
		t.Fatal("expected NotFound")
	}
	if Reason(errors.New("plain")) != "" {
		t.Fatal("expected empty reason for plain error")
	}
	if IsNotFound(Internal("ratings", "DB", "db")) {
		t.Fatal("internal must not be NotFound")
	}
}
