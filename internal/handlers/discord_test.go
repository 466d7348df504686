package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendPlanner(t *testing.T) {
	image := []byte{0x89, 'P', 'N', 'G'}
	encoded := base64.StdEncoding.EncodeToString(image)

	tests := []struct {
		name           string
		body           string
		mockSetup      func(*MockPlannerSender)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Happy Path",
			body:           `{"imageBase64":"` + encoded + `","message":"team draft"}`,
			expectedStatus: http.StatusOK,
			expectedBody:   "Image sent to Discord",
		},
		{
			name:           "Missing Image",
			body:           `{"message":"team draft"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "imageBase64",
		},
		{
			name:           "Invalid Base64",
			body:           `{"imageBase64":"not base64!!"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Invalid base64 image data",
		},
		{
			name: "Webhook Failure",
			body: `{"imageBase64":"` + encoded + `"}`,
			mockSetup: func(m *MockPlannerSender) {
				m.SendPlannerImageFunc = func(ctx context.Context, image []byte, message string) error {
					return errors.New("discord 500")
				}
			},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   "Discord webhook failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPlanner := &MockPlannerSender{}
			if tt.mockSetup != nil {
				tt.mockSetup(mockPlanner)
			}
			h := testHandler()
			h.planner = mockPlanner

			req := httptest.NewRequest("POST", "/api/discord/planner", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.SendPlanner(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.expectedBody) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedBody, w.Body.String())
			}
		})
	}
}

func TestSendPlannerDecodesImage(t *testing.T) {
	image := []byte("fake png bytes")
	encoded := base64.StdEncoding.EncodeToString(image)

	var gotImage []byte
	var gotMessage string
	h := testHandler()
	h.planner = &MockPlannerSender{
		SendPlannerImageFunc: func(ctx context.Context, img []byte, message string) error {
			gotImage = img
			gotMessage = message
			return nil
		},
	}

	body := `{"imageBase64":"` + encoded + `","message":"scrim tonight"}`
	req := httptest.NewRequest("POST", "/api/discord/planner", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.SendPlanner(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !bytes.Equal(gotImage, image) {
		t.Errorf("decoded image = %q, want %q", gotImage, image)
	}
	if gotMessage != "scrim tonight" {
		t.Errorf("message = %q, want %q", gotMessage, "scrim tonight")
	}
}

func TestSendPlannerWithoutWebhook(t *testing.T) {
	h := testHandler()

	req := httptest.NewRequest("POST", "/api/discord/planner", strings.NewReader(`{"imageBase64":"aGk="}`))
	w := httptest.NewRecorder()
	h.SendPlanner(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not configured") {
		t.Errorf("body = %q, want not configured error", w.Body.String())
	}
}
