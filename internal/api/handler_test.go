package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-campus-sos/internal/models"
	"github.com/mr1hm/go-campus-sos/internal/repository"
	"github.com/mr1hm/go-campus-sos/internal/store"
)

const testAdminPassword = "admin123"

// mockStore implements AlertStore for testing
type mockStore struct {
	alerts   []models.Alert
	nextID   int
	degraded bool
}

func (m *mockStore) Create(_ context.Context, sub models.Submission) (*models.Alert, error) {
	if sub.Location == nil || !sub.Location.Valid() {
		return nil, store.ErrValidation
	}
	category := sub.Category
	if category == "" {
		category = models.CategoryEmergency
	}
	m.nextID++
	alert := models.Alert{
		ID:            string(rune('a' + m.nextID - 1)),
		SubmitterID:   sub.SubmitterID,
		SubmitterName: sub.SubmitterName,
		Location:      *sub.Location,
		Category:      category,
		Status:        models.StatusActive,
		Description:   sub.Description,
		CreatedAt:     time.Now().UTC(),
	}
	m.alerts = append(m.alerts, alert)
	return &alert, nil
}

func (m *mockStore) List(context.Context) ([]models.Alert, error) {
	out := make([]models.Alert, len(m.alerts))
	copy(out, m.alerts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *mockStore) Resolve(_ context.Context, id string) (*models.Alert, error) {
	for i := range m.alerts {
		if m.alerts[i].ID == id {
			m.alerts[i].Status = models.StatusResolved
			a := m.alerts[i]
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockStore) Delete(_ context.Context, id string) error {
	for i := range m.alerts {
		if m.alerts[i].ID == id {
			m.alerts = append(m.alerts[:i], m.alerts[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *mockStore) DeleteAllResolved(context.Context) (int, []string, error) {
	kept := m.alerts[:0]
	ids := []string{}
	for _, a := range m.alerts {
		if a.Status == models.StatusResolved {
			ids = append(ids, a.ID)
			continue
		}
		kept = append(kept, a)
	}
	m.alerts = kept
	return len(ids), ids, nil
}

func (m *mockStore) Degraded() bool { return m.degraded }

func setupTestRouter(s AlertStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewHandler(s, nil, testAdminPassword)
	handler.RegisterRoutes(router)
	return router
}

func adminReq(method, path string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	req.Header.Set(AdminHeader, testAdminPassword)
	return req
}

func TestListAlerts(t *testing.T) {
	s := &mockStore{}
	s.Create(context.Background(), models.Submission{
		SubmitterID: "u1", SubmitterName: "A",
		Location: &models.Location{Lat: 1, Lng: 2},
	})
	router := setupTestRouter(s)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/sos", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var alerts []models.Alert
	if err := json.Unmarshal(w.Body.Bytes(), &alerts); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(alerts) != 1 || alerts[0].SubmitterName != "A" {
		t.Errorf("unexpected list: %+v", alerts)
	}
}

func TestCreateAlert(t *testing.T) {
	s := &mockStore{}
	router := setupTestRouter(s)

	body := []byte(`{"submitterId":"u1","submitterName":"A","location":{"lat":1,"lng":2}}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/sos", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var alert models.Alert
	if err := json.Unmarshal(w.Body.Bytes(), &alert); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if alert.ID == "" || alert.Status != models.StatusActive {
		t.Errorf("unexpected created alert: %+v", alert)
	}
	if alert.Category != models.CategoryEmergency {
		t.Errorf("expected default category, got %s", alert.Category)
	}
}

func TestCreateAlert_Validation(t *testing.T) {
	router := setupTestRouter(&mockStore{})

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"missing location", `{"submitterId":"u1","submitterName":"A"}`},
		{"out of range", `{"submitterId":"u1","submitterName":"A","location":{"lat":999,"lng":2}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("POST", "/api/sos", bytes.NewReader([]byte(tc.body)))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", w.Code)
			}
		})
	}
}

func TestResolveAlert(t *testing.T) {
	s := &mockStore{}
	alert, _ := s.Create(context.Background(), models.Submission{
		SubmitterID: "u1", SubmitterName: "A",
		Location: &models.Location{Lat: 1, Lng: 2},
	})
	router := setupTestRouter(s)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, adminReq("PATCH", "/api/sos/"+alert.ID+"/resolve", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var updated models.Alert
	json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.Status != models.StatusResolved {
		t.Errorf("expected resolved, got %s", updated.Status)
	}
}

func TestResolveAlert_NotFound(t *testing.T) {
	router := setupTestRouter(&mockStore{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, adminReq("PATCH", "/api/sos/nope/resolve", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestDeleteAlert(t *testing.T) {
	s := &mockStore{}
	alert, _ := s.Create(context.Background(), models.Submission{
		SubmitterID: "u1", SubmitterName: "A",
		Location: &models.Location{Lat: 1, Lng: 2},
	})
	router := setupTestRouter(s)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, adminReq("DELETE", "/api/sos/"+alert.ID, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, adminReq("DELETE", "/api/sos/"+alert.ID, nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for second delete, got %d", w.Code)
	}
}

func TestDeleteResolved(t *testing.T) {
	s := &mockStore{}
	ctx := context.Background()
	a1, _ := s.Create(ctx, models.Submission{SubmitterID: "u1", SubmitterName: "A", Location: &models.Location{Lat: 1, Lng: 2}})
	s.Create(ctx, models.Submission{SubmitterID: "u2", SubmitterName: "B", Location: &models.Location{Lat: 3, Lng: 4}})
	s.Resolve(ctx, a1.ID)
	router := setupTestRouter(s)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, adminReq("DELETE", "/api/sos/resolved", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var out struct {
		Success bool     `json:"success"`
		Deleted int      `json:"deleted"`
		IDs     []string `json:"ids"`
	}
	json.Unmarshal(w.Body.Bytes(), &out)
	if !out.Success || out.Deleted != 1 || len(out.IDs) != 1 || out.IDs[0] != a1.ID {
		t.Errorf("unexpected response: %+v", out)
	}
}

func TestAdminRoutes_RequirePassword(t *testing.T) {
	router := setupTestRouter(&mockStore{})

	for _, route := range []struct{ method, path string }{
		{"PATCH", "/api/sos/x/resolve"},
		{"DELETE", "/api/sos/x"},
		{"DELETE", "/api/sos/resolved"},
	} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(route.method, route.path, nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401 without password, got %d", route.method, route.path, w.Code)
		}
	}
}

func TestAdminLogin(t *testing.T) {
	router := setupTestRouter(&mockStore{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/admin/login", bytes.NewReader([]byte(`{"password":"admin123"}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for correct password, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/api/admin/login", bytes.NewReader([]byte(`{"password":"wrong"}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong password, got %d", w.Code)
	}
}

func TestHealth_ReportsDegraded(t *testing.T) {
	router := setupTestRouter(&mockStore{degraded: true})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var out struct {
		Status   string `json:"status"`
		Degraded bool   `json:"degraded"`
	}
	json.Unmarshal(w.Body.Bytes(), &out)
	if out.Status != "ok" || !out.Degraded {
		t.Errorf("unexpected health payload: %+v", out)
	}
}
