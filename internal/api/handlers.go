// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tiggyapp/advisor/internal/catalog"
	"github.com/tiggyapp/advisor/internal/conversation"
	"github.com/tiggyapp/advisor/internal/genai"
	"github.com/tiggyapp/advisor/internal/logging"
	"github.com/tiggyapp/advisor/internal/models"
	"github.com/tiggyapp/advisor/internal/recommend"
	"github.com/tiggyapp/advisor/internal/store"
	"github.com/tiggyapp/advisor/internal/validation"
)

// Handler holds the dependencies of all HTTP endpoints.
type Handler struct {
	engine   *recommend.Engine
	chats    *conversation.Service
	profiles store.ProfileStore
	cache    *catalog.Cache
}

// NewHandler creates the endpoint handler.
func NewHandler(engine *recommend.Engine, chats *conversation.Service, profiles store.ProfileStore, cache *catalog.Cache) *Handler {
	return &Handler{
		engine:   engine,
		chats:    chats,
		profiles: profiles,
		cache:    cache,
	}
}

// HealthLive reports process liveness.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"}, time.Now())
}

// HealthReady reports readiness: a catalog snapshot must be loaded.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.cache.Current() == nil {
		respondError(w, r, http.StatusServiceUnavailable, &models.APIError{
			Code:    "CATALOG_UNAVAILABLE",
			Message: "course catalog not loaded yet",
		})
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "ready"}, time.Now())
}

// RecommendCourses handles GET /api/v1/recommendations/courses.
// Query parameters: user_id (required), query (optional free text),
// limit (optional).
func (h *Handler) RecommendCourses(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, r, http.StatusBadRequest, &models.APIError{
			Code:    "VALIDATION_ERROR",
			Message: "user_id is required",
		})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, r, http.StatusBadRequest, &models.APIError{
				Code:    "VALIDATION_ERROR",
				Message: "limit must be a positive integer",
			})
			return
		}
		limit = parsed
	}

	profile := h.loadProfile(r, userID)

	result, err := h.engine.Recommend(r.Context(), recommend.Request{
		Profile: profile,
		Query:   r.URL.Query().Get("query"),
		Limit:   limit,
	})
	if err != nil {
		h.respondEngineError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, toRecommendationsResponse(result), start)
}

// SendMessage handles POST /api/v1/chat/send-message.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, &models.APIError{
			Code:    "VALIDATION_ERROR",
			Message: "invalid JSON body",
		})
		return
	}
	if apiErr := validation.ToAPIError(&req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	timestamp := time.Now().UTC()
	if req.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, req.Timestamp); err == nil {
			timestamp = parsed
		}
	}

	reply, err := h.chats.SendMessage(r.Context(), req.ChatID, req.Message, timestamp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, &models.APIError{
				Code:    "CHAT_NOT_FOUND",
				Message: "chat does not exist",
			})
			return
		}
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Msg("send message failed")
		respondError(w, r, http.StatusInternalServerError, &models.APIError{
			Code:    "INTERNAL_ERROR",
			Message: "failed to process message",
		})
		return
	}

	respondJSON(w, r, http.StatusOK, models.SendMessageResponse{ModelMessage: reply}, start)
}

// CreateChat handles POST /api/v1/chats.
func (h *Handler) CreateChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req struct {
		UserID string `json:"userId" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, &models.APIError{
			Code:    "VALIDATION_ERROR",
			Message: "invalid JSON body",
		})
		return
	}
	if apiErr := validation.ToAPIError(&req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	chat, err := h.chats.CreateChat(r.Context(), req.UserID)
	if err != nil {
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Msg("create chat failed")
		respondError(w, r, http.StatusInternalServerError, &models.APIError{
			Code:    "INTERNAL_ERROR",
			Message: "failed to create chat",
		})
		return
	}

	respondJSON(w, r, http.StatusCreated, chat, start)
}

// GetChat handles GET /api/v1/chats/{chatID}.
func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	chat, err := h.chats.GetChat(r.Context(), chi.URLParam(r, "chatID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, &models.APIError{
				Code:    "CHAT_NOT_FOUND",
				Message: "chat does not exist",
			})
			return
		}
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Msg("get chat failed")
		respondError(w, r, http.StatusInternalServerError, &models.APIError{
			Code:    "INTERNAL_ERROR",
			Message: "failed to load chat",
		})
		return
	}

	respondJSON(w, r, http.StatusOK, chat, start)
}

// ListChats handles GET /api/v1/chats?user_id=...
func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, r, http.StatusBadRequest, &models.APIError{
			Code:    "VALIDATION_ERROR",
			Message: "user_id is required",
		})
		return
	}

	chats, err := h.chats.ListChats(r.Context(), userID)
	if err != nil {
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Msg("list chats failed")
		respondError(w, r, http.StatusInternalServerError, &models.APIError{
			Code:    "INTERNAL_ERROR",
			Message: "failed to list chats",
		})
		return
	}
	if chats == nil {
		chats = []*models.Chat{}
	}

	respondJSON(w, r, http.StatusOK, chats, start)
}

// DeleteChat handles DELETE /api/v1/chats/{chatID}.
func (h *Handler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if err := h.chats.DeleteChat(r.Context(), chi.URLParam(r, "chatID")); err != nil {
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Msg("delete chat failed")
		respondError(w, r, http.StatusInternalServerError, &models.APIError{
			Code:    "INTERNAL_ERROR",
			Message: "failed to delete chat",
		})
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]string{"status": "deleted"}, start)
}

// loadProfile fetches the user's profile, tolerating absence: new users
// get empty-profile recommendations plus an advisory.
func (h *Handler) loadProfile(r *http.Request, userID string) *models.UserProfile {
	profile, err := h.profiles.GetProfile(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger := logging.Ctx(r.Context())
			logger.Warn().Err(err).Msg("profile lookup failed")
		}
		return &models.UserProfile{ID: userID}
	}
	return profile
}

// respondEngineError maps engine failures to API errors.
func (h *Handler) respondEngineError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, genai.ErrServiceDegraded) {
		respondError(w, r, http.StatusServiceUnavailable, &models.APIError{
			Code:    "SERVICE_DEGRADED",
			Message: "recommendations are temporarily unavailable",
		})
		return
	}
	logger := logging.Ctx(r.Context())
	logger.Error().Err(err).Msg("recommendation failed")
	respondError(w, r, http.StatusInternalServerError, &models.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "failed to produce recommendations",
	})
}

// toRecommendationsResponse converts an engine result to the wire
// shape, applying TBA defaults and day expansion.
func toRecommendationsResponse(result *models.RecommendationResult) models.CourseRecommendationsResponse {
	courses := make([]models.CourseDetails, 0, len(result.Courses))
	for _, rc := range result.Courses {
		instructor := rc.Course.Instructor
		if instructor == "" {
			instructor = "TBA"
		}
		schedule := models.ExpandMeetingDays(rc.Course.Schedule)
		if schedule == "" {
			schedule = "TBA"
		}
		courses = append(courses, models.CourseDetails{
			Code:        rc.Course.Code,
			Title:       rc.Course.Title,
			Instructor:  instructor,
			Format:      rc.Course.Format,
			Schedule:    schedule,
			Description: rc.Course.Description,
			Rationale:   rc.Rationale,
		})
	}

	return models.CourseRecommendationsResponse{
		Courses:  courses,
		Message:  result.Advisory,
		Degraded: result.Degraded,
	}
}
