package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeJSONValidationMessage(t *testing.T) {
	type payload struct {
		Title string `json:"title" validate:"required"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":""}`))
	var p payload
	err := decodeJSON(r, &p)
	if err == nil {
		t.Fatal("expected a validation error")
	}
	if !strings.Contains(err.Error(), "title") || !strings.Contains(err.Error(), "required") {
		t.Fatalf("error %q does not name the failing field and tag", err)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	type payload struct {
		Title string `json:"title" validate:"required"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"x","bogus":1}`))
	var p payload
	if err := decodeJSON(r, &p); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}
