// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package validation

import (
	"strings"
	"testing"

	"github.com/tiggyapp/advisor/internal/models"
)

func TestValidateStructSendMessage(t *testing.T) {
	valid := models.SendMessageRequest{
		ChatID:  "7f6c7a6e-8a00-4b2f-9c67-2f6f6a3c0f11",
		Message: "what should I take?",
	}
	if err := ValidateStruct(&valid); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}

	missing := models.SendMessageRequest{Message: "hi"}
	err := ValidateStruct(&missing)
	if err == nil {
		t.Fatal("missing chat id accepted")
	}
	if !strings.Contains(err.Error(), "ChatID") {
		t.Errorf("error does not name the field: %v", err)
	}

	badID := models.SendMessageRequest{ChatID: "nope", Message: "hi"}
	if err := ValidateStruct(&badID); err == nil {
		t.Error("malformed chat id accepted")
	}

	tooLong := models.SendMessageRequest{
		ChatID:  "7f6c7a6e-8a00-4b2f-9c67-2f6f6a3c0f11",
		Message: strings.Repeat("x", 4001),
	}
	if err := ValidateStruct(&tooLong); err == nil {
		t.Error("oversized message accepted")
	}
}

func TestToAPIError(t *testing.T) {
	if apiErr := ToAPIError(&models.SendMessageRequest{}); apiErr == nil {
		t.Fatal("expected API error")
	} else if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q", apiErr.Code)
	}

	valid := models.SendMessageRequest{
		ChatID:  "7f6c7a6e-8a00-4b2f-9c67-2f6f6a3c0f11",
		Message: "hello",
	}
	if apiErr := ToAPIError(&valid); apiErr != nil {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}
