package resolve

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TomasB/georesolve/internal/data"
	"github.com/TomasB/georesolve/internal/resolver"
	"github.com/gin-gonic/gin"
)

// mockDataset implements data.Dataset for testing.
type mockDataset struct {
	record *data.LocationRecord
	err    error
}

func (m *mockDataset) Lookup(_ net.IP) (*data.LocationRecord, error) {
	return m.record, m.err
}

func (m *mockDataset) Metadata() data.Metadata {
	return data.Metadata{}
}

func (m *mockDataset) Close() error {
	return nil
}

func usRecord() *data.LocationRecord {
	return &data.LocationRecord{
		Country: &data.CountryRecord{
			ISOCode: "US",
			Names:   map[string]string{"en": "United States"},
		},
		Continent: &data.ContinentRecord{
			Names: map[string]string{"en": "North America"},
		},
	}
}

func setupRouter(ds *mockDataset, policy StatusPolicy) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(resolver.NewService(ds, nil), policy)
	r.GET("/:ip", h.Resolve)
	return r
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestResolve_Found(t *testing.T) {
	router := setupRouter(&mockDataset{record: usRecord()}, CollapseErrors)

	w := get(router, "/8.8.8.8")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("expected JSON content type, got %q", ct)
	}

	expectedBody := `{"country":"United States","country_code":"US","continent":"North America"}`
	if w.Body.String() != expectedBody {
		t.Errorf("expected body %s, got %s", expectedBody, w.Body.String())
	}
}

func TestResolve_NotFound(t *testing.T) {
	router := setupRouter(&mockDataset{}, CollapseErrors)

	w := get(router, "/203.0.113.1")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if w.Body.String() != `{}` {
		t.Errorf("expected empty object, got %s", w.Body.String())
	}
}

func TestResolve_IPv6(t *testing.T) {
	router := setupRouter(&mockDataset{record: usRecord()}, CollapseErrors)

	w := get(router, "/2001:db8::1")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp resolver.Location
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.CountryCode != "US" {
		t.Errorf("expected country code US, got %s", resp.CountryCode)
	}
}

func TestResolve_InvalidIP(t *testing.T) {
	tests := []struct {
		name   string
		policy StatusPolicy
		want   int
	}{
		{name: "collapse", policy: CollapseErrors, want: http.StatusInternalServerError},
		{name: "strict", policy: StrictErrors, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupRouter(&mockDataset{record: usRecord()}, tt.policy)

			w := get(router, "/not-an-ip")

			if w.Code != tt.want {
				t.Fatalf("expected status %d, got %d", tt.want, w.Code)
			}

			var resp ErrorResponse
			json.Unmarshal(w.Body.Bytes(), &resp)

			if resp.Error != "invalid IP address" {
				t.Errorf("expected 'invalid IP address' error, got %q", resp.Error)
			}
		})
	}
}

func TestResolve_LookupError(t *testing.T) {
	for _, policy := range []StatusPolicy{CollapseErrors, StrictErrors} {
		router := setupRouter(&mockDataset{err: fmt.Errorf("db failure")}, policy)

		w := get(router, "/8.8.8.8")

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status 500, got %d", w.Code)
		}

		var resp ErrorResponse
		json.Unmarshal(w.Body.Bytes(), &resp)

		if resp.Error != "lookup failed" {
			t.Errorf("expected 'lookup failed' error, got %q", resp.Error)
		}
	}
}

func TestResolve_IncompleteRecord(t *testing.T) {
	record := usRecord()
	record.Continent = nil
	router := setupRouter(&mockDataset{record: record}, StrictErrors)

	w := get(router, "/8.8.8.8")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}

	var resp ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp.Error != "incomplete location record" {
		t.Errorf("expected 'incomplete location record' error, got %q", resp.Error)
	}
}
