package services_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"caresync_back_end_go/auth"
	"caresync_back_end_go/routes"
	"caresync_back_end_go/services"

	"github.com/gin-gonic/gin"
)

func newTestServer(t *testing.T, store services.ConsultationStore) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	routes.SetupConsultationRoutes(r, store)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func bearerToken(t *testing.T, userID, userType string) string {
	t.Helper()
	token, err := auth.GenerateToken(auth.User{ID: userID}, userType)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func doJSON(t *testing.T, method, url, token string, payload interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, url, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer res.Body.Close()
	var out map[string]interface{}
	_ = json.NewDecoder(res.Body).Decode(&out)
	return res, out
}

func TestMessagesRequireToken(t *testing.T) {
	scheduled := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	srv := newTestServer(t, newSeededStore(scheduled))

	res, _ := doJSON(t, "GET", srv.URL+"/api/v1/consultations/"+appointmentID+"/messages", "", nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %v", res.Status)
	}

	res, _ = doJSON(t, "GET", srv.URL+"/api/v1/consultations", "not-a-token", nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with garbage token, got %v", res.Status)
	}
}

func TestForeignAppointmentIs404(t *testing.T) {
	scheduled := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	srv := newTestServer(t, newSeededStore(scheduled))
	stranger := bearerToken(t, "99999999-9999-9999-9999-999999999999", "patient")

	res, _ := doJSON(t, "GET", srv.URL+"/api/v1/consultations/"+appointmentID+"/messages", stranger, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for a foreign appointment, got %v", res.Status)
	}
}

func TestGatedListIsSoft(t *testing.T) {
	scheduled := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	store := newSeededStore(scheduled)
	store.Now = func() time.Time { return scheduled.Add(-time.Hour) }
	srv := newTestServer(t, store)
	token := bearerToken(t, patientID, "patient")

	res, body := doJSON(t, "GET", srv.URL+"/api/v1/consultations/"+appointmentID+"/messages", token, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("gated list should still be 200, got %v", res.Status)
	}
	if canChat, ok := body["can_chat"].(bool); !ok || canChat {
		t.Errorf("expected can_chat false in gated payload, got %v", body["can_chat"])
	}
	if body["scheduled_date"] != "2025-03-10" || body["scheduled_time"] != "09:00" {
		t.Errorf("scheduled date/time missing from gated payload: %v", body)
	}
}

func TestGatedSendIs403WithCanChat(t *testing.T) {
	scheduled := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	store := newSeededStore(scheduled)
	store.Now = func() time.Time { return scheduled.Add(-time.Second) }
	srv := newTestServer(t, store)
	token := bearerToken(t, patientID, "patient")

	res, body := doJSON(t, "POST", srv.URL+"/api/v1/consultations/"+appointmentID+"/messages", token,
		map[string]string{"body": "too early"})
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for a gated send, got %v", res.Status)
	}
	if canChat, ok := body["can_chat"].(bool); !ok || canChat {
		t.Errorf("gated send body must carry can_chat false, got %v", body)
	}
}

func TestSendAndListRoundTrip(t *testing.T) {
	scheduled := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	store := newSeededStore(scheduled)
	store.Now = func() time.Time { return scheduled.Add(time.Minute) }
	srv := newTestServer(t, store)
	patientToken := bearerToken(t, patientID, "patient")
	doctorToken := bearerToken(t, doctorID, "doctor")

	res, created := doJSON(t, "POST", srv.URL+"/api/v1/consultations/"+appointmentID+"/messages", patientToken,
		map[string]string{"body": "  hello doctor  "})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("send failed: %v", res.Status)
	}
	if created["body"] != "hello doctor" {
		t.Errorf("body not trimmed: %q", created["body"])
	}
	if created["sender_role"] != "patient" {
		t.Errorf("sender_role %v, want patient", created["sender_role"])
	}

	res, list := doJSON(t, "GET", srv.URL+"/api/v1/consultations/"+appointmentID+"/messages", doctorToken, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("doctor list failed: %v", res.Status)
	}
	messages, _ := list["messages"].([]interface{})
	if len(messages) != 1 {
		t.Fatalf("doctor sees %d messages, want 1", len(messages))
	}

	res, threads := doJSON(t, "GET", srv.URL+"/api/v1/consultations", doctorToken, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("doctor threads failed: %v", res.Status)
	}
	threadList, _ := threads["threads"].([]interface{})
	if len(threadList) != 1 {
		t.Fatalf("doctor sees %d threads, want 1", len(threadList))
	}
	preview, _ := threadList[0].(map[string]interface{})
	if preview["last_message"] != "hello doctor" {
		t.Errorf("thread preview %v, want the sent message", preview["last_message"])
	}
}

func TestEmptySendIs400(t *testing.T) {
	scheduled := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	store := newSeededStore(scheduled)
	store.Now = func() time.Time { return scheduled.Add(time.Minute) }
	srv := newTestServer(t, store)
	token := bearerToken(t, patientID, "patient")

	res, _ := doJSON(t, "POST", srv.URL+"/api/v1/consultations/"+appointmentID+"/messages", token,
		map[string]string{"body": "   "})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank body, got %v", res.Status)
	}
}
