package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := CreateAPIKeyRequest{
		Name:  "  checkout key  ",
		Scope: "  payments  ",
		Notes: " provisioned by ops ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "checkout key", req.Name)
	assert.Equal(t, "payments", req.Scope)
	assert.Equal(t, "provisioned by ops", req.Notes)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	reason := "customer <script>alert('x')</script> request"
	req := CreateRefundRequest{
		PaymentID: "550e8400-e29b-41d4-a716-446655440000",
		Reason:    &reason,
	}
	SanitizeStruct(&req)

	assert.Contains(t, *req.Reason, "&lt;script&gt;")
	assert.NotContains(t, *req.Reason, "<script>")
}

func TestSanitizeStruct_HandlesPointerString(t *testing.T) {
	url := "  https://example.com/return  "
	req := CreateCheckoutRequest{
		Amount:     2500,
		Currency:   "usd",
		SuccessURL: &url,
	}
	SanitizeStruct(&req)

	assert.Equal(t, "https://example.com/return", *req.SuccessURL)
}

func TestSanitizeStruct_NilPointerIsNoOp(t *testing.T) {
	req := CreateCheckoutRequest{
		Amount:     2500,
		Currency:   "usd",
		SuccessURL: nil,
	}
	SanitizeStruct(&req)
	assert.Nil(t, req.SuccessURL)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s) // should not panic
}

// --- Custom Validator tests ---

func TestSafeID_Valid(t *testing.T) {
	cases := []string{
		"order-001",
		"REF_002",
		"a.b.c",
		"simple123",
		"ABC-def_GHI.123",
	}
	for _, tc := range cases {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
}

func TestSafeID_Invalid(t *testing.T) {
	cases := []string{
		"order 001",   // space
		"order<001>",  // angle brackets
		"order;DROP",  // semicolon
		"",            // empty
		"hello world", // space
		"order\n001",  // newline
	}
	for _, tc := range cases {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %s", tc)
	}
}

func TestSanitizeStruct_CheckoutRequest(t *testing.T) {
	ref := "  order-001  "
	req := CreateCheckoutRequest{
		Amount:    2500,
		Currency:  " usd ",
		Reference: &ref,
	}
	SanitizeStruct(&req)

	assert.Equal(t, "usd", req.Currency)
	assert.Equal(t, "order-001", *req.Reference)
}
