package common

import (
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
)

type sampleBody struct {
	Image string `validate:"required"`
}

func TestGenericEchoValidator_Validate(t *testing.T) {
	v := &GenericEchoValidator{}

	if err := v.Validate(&sampleBody{Image: "data"}); err != nil {
		t.Fatalf("expected valid body, got %v", err)
	}

	err := v.Validate(&sampleBody{})
	if err == nil {
		t.Fatal("expected error for missing required field")
	}
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, httpErr.Code)
	}
}

func TestNewGenericEchoValidator(t *testing.T) {
	v := NewGenericEchoValidator()
	if v.Validator == nil {
		t.Fatal("expected validator to be initialized")
	}
	if err := v.Validate(&sampleBody{}); err == nil {
		t.Error("expected error for missing required field")
	}
}
