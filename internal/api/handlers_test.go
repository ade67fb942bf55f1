// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tiggyapp/advisor/internal/catalog"
	"github.com/tiggyapp/advisor/internal/config"
	"github.com/tiggyapp/advisor/internal/conversation"
	"github.com/tiggyapp/advisor/internal/embedding"
	"github.com/tiggyapp/advisor/internal/genai"
	"github.com/tiggyapp/advisor/internal/models"
	"github.com/tiggyapp/advisor/internal/recommend"
	"github.com/tiggyapp/advisor/internal/store"
)

type memCourses struct {
	courses []models.Course
}

func (m *memCourses) ListCourses(ctx context.Context) ([]models.Course, error) {
	return m.courses, nil
}

func (m *memCourses) ReplaceCourses(ctx context.Context, courses []models.Course) error {
	m.courses = courses
	return nil
}

type memProfiles struct {
	profiles map[string]*models.UserProfile
}

func (m *memProfiles) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	if p, ok := m.profiles[userID]; ok {
		return p, nil
	}
	return nil, store.ErrNotFound
}

func (m *memProfiles) PutProfile(ctx context.Context, profile *models.UserProfile) error {
	m.profiles[profile.ID] = profile
	return nil
}

type stubGenAI struct {
	reply string
	err   error
}

func (s *stubGenAI) Complete(ctx context.Context, req genai.CompletionRequest) (string, error) {
	return s.reply, s.err
}

func (s *stubGenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func apiCourses() []models.Course {
	return []models.Course{
		{ID: "1", Code: "COS 126", Title: "Computer Science", Schedule: "MWF", Embedding: []float32{1, 0, 0}},
		{ID: "2", Code: "COS 217", Title: "Systems Programming", Instructor: "J. Doe", Embedding: []float32{0.9, 0.1, 0}},
	}
}

func newTestServer(t *testing.T, client genai.Client) *httptest.Server {
	t.Helper()

	cache := catalog.NewCache(&memCourses{courses: apiCourses()}, time.Minute, nil)
	snap, err := cache.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	index := embedding.NewIndex(3)
	index.Rebuild(snap)

	engine := recommend.NewEngine(cache, index, client,
		config.RecommendConfig{MaxRecommendations: 5, RerankRetries: 1}, 10)

	transcripts, err := store.OpenBadgerTranscripts("")
	if err != nil {
		t.Fatalf("OpenBadgerTranscripts: %v", err)
	}
	t.Cleanup(func() { _ = transcripts.Close() })

	profiles := &memProfiles{profiles: map[string]*models.UserProfile{
		"user-1": {
			ID:               "user-1",
			Concentration:    "COS",
			CompletedCourses: map[string]string{"EGR 100": ""},
		},
	}}

	builder := conversation.NewBuilder(
		config.ChatConfig{MaxTurns: 10, CharBudget: 5000, SnippetK: 3},
		cache, index, client)
	chats := conversation.NewService(transcripts, profiles, builder, client)

	handler := NewHandler(engine, chats, profiles, cache)
	router := NewRouter(config.ServerConfig{
		RateLimitPerMinute: 1000,
		CORSOrigins:        []string{"*"},
	}, handler)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func decodeEnvelope(t *testing.T, resp *http.Response) models.APIResponse {
	t.Helper()
	defer resp.Body.Close()
	var env models.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func TestRecommendCoursesEndpoint(t *testing.T) {
	client := &stubGenAI{
		reply: `{"recommendations":[{"code":"COS 217","rationale":"next step"},{"code":"COS 126","rationale":"fundamentals"}]}`,
	}
	srv := newTestServer(t, client)

	resp, err := http.Get(srv.URL + "/api/v1/recommendations/courses?user_id=user-1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	env := decodeEnvelope(t, resp)

	raw, _ := json.Marshal(env.Data)
	var data models.CourseRecommendationsResponse
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}

	if len(data.Courses) != 2 {
		t.Fatalf("courses = %d, want 2", len(data.Courses))
	}
	if data.Courses[0].Code != "COS 217" {
		t.Errorf("top course = %q", data.Courses[0].Code)
	}
	// TBA default and expanded days come through the wire shape.
	if data.Courses[1].Instructor != "TBA" {
		t.Errorf("instructor = %q, want TBA", data.Courses[1].Instructor)
	}
	if data.Courses[1].Schedule != "Mon, Wed, Fri" {
		t.Errorf("schedule = %q", data.Courses[1].Schedule)
	}
	if data.Degraded {
		t.Error("Degraded = true")
	}
}

func TestRecommendCoursesRequiresUserID(t *testing.T) {
	srv := newTestServer(t, &stubGenAI{})

	resp, err := http.Get(srv.URL + "/api/v1/recommendations/courses")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	env := decodeEnvelope(t, resp)
	if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestRecommendCoursesSparseProfileAdvisory(t *testing.T) {
	client := &stubGenAI{
		reply: `{"recommendations":[{"code":"COS 126"}]}`,
	}
	srv := newTestServer(t, client)

	// Unknown user gets an empty profile and the settings advisory.
	resp, err := http.Get(srv.URL + "/api/v1/recommendations/courses?user_id=new-user")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	env := decodeEnvelope(t, resp)

	raw, _ := json.Marshal(env.Data)
	var data models.CourseRecommendationsResponse
	_ = json.Unmarshal(raw, &data)

	if !strings.Contains(data.Message, "Settings page") {
		t.Errorf("Message = %q, want sparse-profile advisory", data.Message)
	}
	if len(data.Courses) == 0 {
		t.Error("advisory must not block results")
	}
}

func TestSendMessageEndpoint(t *testing.T) {
	client := &stubGenAI{reply: "You could try COS 217 next."}
	srv := newTestServer(t, client)

	// Create a chat first.
	resp, err := http.Post(srv.URL+"/api/v1/chats", "application/json",
		strings.NewReader(`{"userId":"user-1"}`))
	if err != nil {
		t.Fatalf("POST create: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	env := decodeEnvelope(t, resp)
	raw, _ := json.Marshal(env.Data)
	var chat models.Chat
	_ = json.Unmarshal(raw, &chat)

	body := `{"chatId":"` + chat.ID + `","message":"what next after COS 126?"}`
	resp, err = http.Post(srv.URL+"/api/v1/chat/send-message", "application/json",
		strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST send: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("send status = %d", resp.StatusCode)
	}
	env = decodeEnvelope(t, resp)
	raw, _ = json.Marshal(env.Data)
	var msg models.SendMessageResponse
	_ = json.Unmarshal(raw, &msg)

	if msg.ModelMessage != "You could try COS 217 next." {
		t.Errorf("model_message = %q", msg.ModelMessage)
	}
}

func TestSendMessageValidation(t *testing.T) {
	srv := newTestServer(t, &stubGenAI{})

	tests := []struct {
		name string
		body string
	}{
		{"missing chat id", `{"message":"hi"}`},
		{"bad chat id", `{"chatId":"not-a-uuid","message":"hi"}`},
		{"missing message", `{"chatId":"7f6c7a6e-8a00-4b2f-9c67-2f6f6a3c0f11"}`},
		{"not json", `hello`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/v1/chat/send-message", "application/json",
				strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestSendMessageUnknownChat(t *testing.T) {
	srv := newTestServer(t, &stubGenAI{reply: "hi"})

	body := `{"chatId":"7f6c7a6e-8a00-4b2f-9c67-2f6f6a3c0f11","message":"hello"}`
	resp, err := http.Post(srv.URL+"/api/v1/chat/send-message", "application/json",
		strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, &stubGenAI{})

	for _, path := range []string{"/api/v1/health/live", "/api/v1/health/ready"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d", path, resp.StatusCode)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubGenAI{})

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
