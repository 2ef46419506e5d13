package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestMinifyError_Error(t *testing.T) {
	err := &MinifyError{
		Code:    ErrNotFound,
		Message: "run not found",
	}

	expected := "NOT_FOUND: run not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewUnrecognizedDirective(t *testing.T) {
	err := NewUnrecognizedDirective("split-html")

	if err.Code != ErrUnrecognizedDirective {
		t.Errorf("Code = %q, want %q", err.Code, ErrUnrecognizedDirective)
	}
	if err.Details["token"] != "split-html" {
		t.Errorf("Details[token] = %v, want %q", err.Details["token"], "split-html")
	}
}

func TestNewInvalidOptionValue(t *testing.T) {
	err := NewInvalidOptionValue("jsCompressorEngine", "UGLIFY", "one of CLOSURE, YUI")

	if err.Code != ErrInvalidOptionValue {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidOptionValue)
	}
	if err.Details["option"] != "jsCompressorEngine" {
		t.Errorf("Details[option] = %v, want %q", err.Details["option"], "jsCompressorEngine")
	}
	if err.Details["value"] != "UGLIFY" {
		t.Errorf("Details[value] = %v, want %q", err.Details["value"], "UGLIFY")
	}
}

func TestNewCompressionFailure_Unwraps(t *testing.T) {
	cause := fmt.Errorf("unexpected token")
	err := NewCompressionFailure("js/app.js", cause)

	if !stderrors.Is(err, cause) {
		t.Error("expected compression failure to unwrap to its cause")
	}
}

func TestIs(t *testing.T) {
	if !Is(NewUnknownOption("x"), ErrUnknownOption) {
		t.Error("Is should match direct code")
	}
	if Is(NewUnknownOption("x"), ErrInternal) {
		t.Error("Is should not match a different code")
	}
	if Is(nil, ErrInternal) {
		t.Error("Is(nil) should be false")
	}
	if Is(fmt.Errorf("plain"), ErrInternal) {
		t.Error("Is should not match non-MinifyError")
	}

	wrapped := fmt.Errorf("document index.html: %w", NewCompressionFailure("a.js", nil))
	if !Is(wrapped, ErrCompressionFailure) {
		t.Error("Is should match a wrapped MinifyError")
	}

	joined := stderrors.Join(NewUnrecognizedDirective("x"), NewDirectiveParse("=y", "empty option name"))
	if !Is(joined, ErrDirectiveParse) {
		t.Error("Is should match the second of joined errors")
	}
}

func TestAll(t *testing.T) {
	joined := stderrors.Join(
		NewUnrecognizedDirective("a"),
		fmt.Errorf("ctx: %w", NewUnknownOption("b")),
		fmt.Errorf("plain"),
	)

	all := All(joined)
	if len(all) != 2 {
		t.Fatalf("len(All) = %d, want 2", len(all))
	}
	if all[0].Code != ErrUnrecognizedDirective || all[1].Code != ErrUnknownOption {
		t.Errorf("All codes = %s, %s", all[0].Code, all[1].Code)
	}
	if All(nil) != nil {
		t.Error("All(nil) should be nil")
	}
}
