package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewAndIs(t *testing.T) {
	err := New(ErrCodeInvalidTemplate, "template %s has no zones", "t1")
	if !Is(err, ErrCodeInvalidTemplate) {
		t.Error("Is should match the code")
	}
	if Is(err, ErrCodeNetwork) {
		t.Error("Is should not match a different code")
	}
	if got := err.Error(); got != "INVALID_TEMPLATE: template t1 has no zones" {
		t.Errorf("Error() = %q", got)
	}
	if IsRetryable(err) {
		t.Error("New errors are not retryable")
	}
}

func TestWrapPreservesChain(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrCodeNetwork, cause, "submit to %s", "replicate")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped cause must survive errors.Is")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Error() = %q, want cause included", err.Error())
	}
	if !Is(err, ErrCodeNetwork) {
		t.Error("code lost in wrapping")
	}
}

func TestIsUnwrapsThroughFmtErrorf(t *testing.T) {
	inner := New(ErrCodeCyclicPush, "cycle through %q", "a")
	outer := fmt.Errorf("template: %w", inner)
	if !Is(outer, ErrCodeCyclicPush) {
		t.Error("Is must see through fmt.Errorf wrapping")
	}
	if GetCode(outer) != ErrCodeCyclicPush {
		t.Errorf("GetCode = %q", GetCode(outer))
	}
}

func TestRetryable(t *testing.T) {
	if !IsRetryable(NewRetryable(ErrCodeNetwork, "timeout")) {
		t.Error("NewRetryable must mark the error retryable")
	}
	if !IsRetryable(WrapRetryable(ErrCodeRateLimited, stderrors.New("429"), "throttled")) {
		t.Error("WrapRetryable must mark the error retryable")
	}
	if IsRetryable(stderrors.New("plain")) {
		t.Error("plain errors are never retryable")
	}
	if IsRetryable(nil) {
		t.Error("nil is not retryable")
	}
}

func TestUserMessage(t *testing.T) {
	err := New(ErrCodeInvalidZone, "zone %s: bounds must have positive size", "hero")
	if got := UserMessage(err); got != "zone hero: bounds must have positive size" {
		t.Errorf("UserMessage = %q", got)
	}
	plain := stderrors.New("boom")
	if UserMessage(plain) != "boom" {
		t.Errorf("UserMessage(plain) = %q", UserMessage(plain))
	}
}

func TestValidateZoneID(t *testing.T) {
	valid := []string{"headline", "logo-2", "a.b_c", "Z9"}
	for _, id := range valid {
		if err := ValidateZoneID(id); err != nil {
			t.Errorf("ValidateZoneID(%q) = %v", id, err)
		}
	}
	invalid := []string{"", "-leading", "has space", "ctl\x00char", strings.Repeat("x", 129)}
	for _, id := range invalid {
		if err := ValidateZoneID(id); !Is(err, ErrCodeInvalidZone) {
			t.Errorf("ValidateZoneID(%q) = %v, want INVALID_ZONE", id, err)
		}
	}
}

func TestValidateHexColor(t *testing.T) {
	for _, c := range []string{"#fff", "#1A2b3C"} {
		if err := ValidateHexColor(c); err != nil {
			t.Errorf("ValidateHexColor(%q) = %v", c, err)
		}
	}
	for _, c := range []string{"", "fff", "#ffff", "#ggg"} {
		if err := ValidateHexColor(c); !Is(err, ErrCodeInvalidStyle) {
			t.Errorf("ValidateHexColor(%q) = %v, want INVALID_STYLE", c, err)
		}
	}
}

func TestValidateURL(t *testing.T) {
	if err := ValidateURL("https://api.example.com/v1"); err != nil {
		t.Errorf("ValidateURL = %v", err)
	}
	for _, u := range []string{"", "ftp://x", "file:///etc/passwd"} {
		if err := ValidateURL(u); !Is(err, ErrCodeInvalidInput) {
			t.Errorf("ValidateURL(%q) = %v, want INVALID_INPUT", u, err)
		}
	}
}
