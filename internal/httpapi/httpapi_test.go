package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"portsweep/internal/scan"
)

func setGinTestMode(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)
}

func TestHandleCreateScan_RejectsInvalidAddress(t *testing.T) {
	setGinTestMode(t)
	srv := NewServer(scan.NewEngine())

	body := `{"addresses":["not-an-ip"],"ports":[80]}`
	req := httptest.NewRequest(http.MethodPost, "/scans", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}
}

func TestHandleCreateScan_AcceptsValidRequest(t *testing.T) {
	setGinTestMode(t)
	srv := NewServer(scan.NewEngine())

	body := `{"addresses":["127.0.0.1"],"ports":[65535]}`
	req := httptest.NewRequest(http.MethodPost, "/scans", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("got status %d, want 202: %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["run_id"] == "" {
		t.Error("expected a non-empty run_id")
	}
}

func TestHandleHeartbeat_UnknownRunID(t *testing.T) {
	setGinTestMode(t)
	srv := NewServer(scan.NewEngine())

	req := httptest.NewRequest(http.MethodGet, "/scans/does-not-exist/heartbeat", nil)
	w := httptest.NewRecorder()

	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", w.Code)
	}
}
