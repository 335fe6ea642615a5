package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"consultation-service/internal/config"
	"consultation-service/internal/meeting"
	"consultation-service/internal/models"
	"consultation-service/internal/repository"
	"consultation-service/internal/routes"
	"consultation-service/internal/service"
)

type stubFeeResolver struct {
	fee float64
	err error
}

func (s stubFeeResolver) ResolveFee(context.Context, string) (float64, error) {
	return s.fee, s.err
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, []byte) error { return nil }

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	router, _ := newTestRouterWithDB(t)
	return router
}

func newTestRouterWithDB(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{
		Consultation: config.ConsultationConfig{
			DefaultFee:     100.0,
			MeetingBaseURL: "https://meet.example.com",
		},
		Events: config.EventsConfig{
			CreatedTopic:       "consultation-created",
			UpdatedTopic:       "consultation-updated",
			DeletedTopic:       "consultation-deleted",
			StatusUpdatedTopic: "consultation-status-updated",
			MeetingLinkTopic:   "meeting-link-generated",
		},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
	}

	svc := service.NewConsultationService(
		repository.NewGormConsultationRepository(db),
		stubFeeResolver{fee: 250.0},
		meeting.NewGenerator(cfg.Consultation.MeetingBaseURL),
		noopPublisher{},
		cfg,
		zerolog.Nop(),
	)

	router := gin.New()
	routes.SetupRoutes(router, svc, cfg, zerolog.Nop())
	return router, db
}

type consultationResponse struct {
	Status  int                 `json:"status"`
	Message string              `json:"message"`
	Data    models.Consultation `json:"data"`
	Error   string              `json:"error"`
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createViaAPI(t *testing.T, router *gin.Engine) models.Consultation {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/v1/consultations", gin.H{
		"userId":              "user-1",
		"doctorId":            "doctor-7",
		"appointmentDateTime": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"type":                "VIDEO_CALL",
		"symptoms":            "fever",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", w.Code, w.Body.String())
	}
	var resp consultationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.Data
}

func TestCreateConsultation(t *testing.T) {
	router := newTestRouter(t)

	created := createViaAPI(t, router)
	if created.Status != models.StatusScheduled {
		t.Errorf("expected status SCHEDULED, got %s", created.Status)
	}
	if created.ConsultationFee != 250.0 {
		t.Errorf("expected directory fee 250.0, got %v", created.ConsultationFee)
	}
	if created.MeetingLink == "" {
		t.Error("expected a meeting link")
	}
}

func TestCreateConsultation_RejectsPastAppointment(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/consultations", gin.H{
		"userId":              "user-1",
		"doctorId":            "doctor-7",
		"appointmentDateTime": time.Now().Add(-time.Hour).Format(time.RFC3339),
		"type":                "VIDEO_CALL",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for past appointment, got %d", w.Code)
	}
}

func TestCreateConsultation_RejectsMissingFields(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/consultations", gin.H{
		"userId": "user-1",
		"type":   "VIDEO_CALL",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing fields, got %d", w.Code)
	}
}

func TestGetConsultation_NotFound(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/consultations/no-such-id", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestUpdateConsultationStatus(t *testing.T) {
	router := newTestRouter(t)
	created := createViaAPI(t, router)

	w := doJSON(t, router, http.MethodPatch,
		fmt.Sprintf("/api/v1/consultations/%s/status", created.ID),
		gin.H{"status": "CANCELLED"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp consultationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Status != models.StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", resp.Data.Status)
	}
}

func TestUpdateConsultationStatus_RejectsUnknownStatus(t *testing.T) {
	router := newTestRouter(t)
	created := createViaAPI(t, router)

	w := doJSON(t, router, http.MethodPatch,
		fmt.Sprintf("/api/v1/consultations/%s/status", created.ID),
		gin.H{"status": "ARCHIVED"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown status, got %d", w.Code)
	}
}

func TestUpdateConsultationStatus_StaleVersionConflicts(t *testing.T) {
	router := newTestRouter(t)
	created := createViaAPI(t, router)

	// Bump the version with a first write.
	w := doJSON(t, router, http.MethodPatch,
		fmt.Sprintf("/api/v1/consultations/%s/status", created.ID),
		gin.H{"status": "IN_PROGRESS", "version": 1})
	if w.Code != http.StatusOK {
		t.Fatalf("first write: expected 200, got %d", w.Code)
	}

	// Retry with the version read before the first write.
	w = doJSON(t, router, http.MethodPatch,
		fmt.Sprintf("/api/v1/consultations/%s/status", created.ID),
		gin.H{"status": "CANCELLED", "version": 1})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for stale version, got %d", w.Code)
	}
}

func TestUpdateConsultationDiagnosis_CompletesConsultation(t *testing.T) {
	router := newTestRouter(t)
	created := createViaAPI(t, router)

	w := doJSON(t, router, http.MethodPatch,
		fmt.Sprintf("/api/v1/consultations/%s/diagnosis", created.ID),
		gin.H{"diagnosis": "flu", "prescription": "rest", "notes": "hydrate"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp consultationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Status != models.StatusCompleted {
		t.Errorf("expected COMPLETED, got %s", resp.Data.Status)
	}
}

func TestDeleteConsultation(t *testing.T) {
	router := newTestRouter(t)
	created := createViaAPI(t, router)

	w := doJSON(t, router, http.MethodDelete, "/api/v1/consultations/"+created.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/v1/consultations/"+created.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
}

func TestGetConsultationsByDateRange_RejectsBadBounds(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/consultations/date-range?start=yesterday&end=tomorrow", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unparseable bounds, got %d", w.Code)
	}
}

func TestRegenerateMeetingLink(t *testing.T) {
	router := newTestRouter(t)
	created := createViaAPI(t, router)

	w := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/v1/consultations/%s/meeting-link", created.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp consultationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.MeetingLink == "" || resp.Data.MeetingLink == created.MeetingLink {
		t.Errorf("expected a fresh meeting link, got %q", resp.Data.MeetingLink)
	}
}

func TestRegenerateMeetingLink_ChunkedBodyHonorsVersion(t *testing.T) {
	router := newTestRouter(t)
	created := createViaAPI(t, router)

	// Chunked requests report ContentLength -1 but still carry a body.
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/v1/consultations/%s/meeting-link", created.ID),
		bytes.NewBufferString(`{"version": 99}`))
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = -1
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for stale version in chunked body, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetConsultation_DatabaseErrorHidesDetail(t *testing.T) {
	router, db := newTestRouterWithDB(t)

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.Close()

	w := doJSON(t, router, http.MethodGet, "/api/v1/consultations/some-id", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
	}

	var resp consultationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "Internal server error" {
		t.Errorf("expected generic error message, got %q", resp.Error)
	}
}
