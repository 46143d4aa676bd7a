package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestKeepAliveAnswersAnything(t *testing.T) {
	h := NewKeepAlive(func() bool { return false })
	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/", nil),
		httptest.NewRequest(http.MethodGet, "/some/path", nil),
		httptest.NewRequest(http.MethodPost, "/", nil),
		httptest.NewRequest(http.MethodHead, "/anything", nil),
	} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("%s %s -> %d", req.Method, req.URL.Path, w.Code)
		}
		if req.Method != http.MethodHead && w.Body.String() != aliveBody {
			t.Errorf("%s %s body = %q", req.Method, req.URL.Path, w.Body.String())
		}
	}
}

func TestHealthz(t *testing.T) {
	h := NewKeepAlive(func() bool { return true })
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["discord_connected"] != true {
		t.Fatalf("body = %v", body)
	}
}
