// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package models

import "time"

// APIResponse is the standard envelope for all JSON responses.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

// APIError represents a structured error payload.
//
// Fields:
//   - Code: machine-readable error code (e.g. "VALIDATION_ERROR",
//     "SERVICE_DEGRADED", "CATALOG_UNAVAILABLE")
//   - Message: human-readable error message
//   - Details: additional context (field names, constraints, etc.)
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// CourseRecommendationsResponse is the payload of
// GET /api/v1/recommendations/courses.
type CourseRecommendationsResponse struct {
	// Courses is ordered by final rank descending.
	Courses []CourseDetails `json:"courses"`

	// Message is present exactly when the eligibility filter relaxed
	// constraints or the profile is missing key fields.
	Message string `json:"message,omitempty"`

	// Degraded indicates the list is similarity-ranked fallback output.
	Degraded bool `json:"degraded,omitempty"`
}

// CourseDetails is the wire shape of one recommended course.
type CourseDetails struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	Instructor  string `json:"instructor"`
	Format      string `json:"format"`
	Schedule    string `json:"schedule"`
	Description string `json:"description"`
	Rationale   string `json:"rationale,omitempty"`
}

// SendMessageRequest is the payload of POST /api/v1/chat/send-message.
type SendMessageRequest struct {
	ChatID    string `json:"chatId" validate:"required,uuid4"`
	Message   string `json:"message" validate:"required,max=4000"`
	Timestamp string `json:"timestamp" validate:"omitempty"`
}

// SendMessageResponse is the reply to a chat message.
type SendMessageResponse struct {
	ModelMessage string `json:"model_message"`
}
