package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"consultation-service/internal/models"
)

func newTestRepo(t *testing.T) *GormConsultationRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewGormConsultationRepository(db)
}

func seedConsultation(t *testing.T, r *GormConsultationRepository, userID, doctorID string, status models.ConsultationStatus, at time.Time) *models.Consultation {
	t.Helper()
	c := &models.Consultation{
		UserID:              userID,
		DoctorID:            doctorID,
		AppointmentDateTime: at,
		Status:              status,
		Type:                models.TypeVideoCall,
		ConsultationFee:     150,
		MeetingLink:         "https://meet.example.com/" + userID + doctorID,
		Version:             1,
	}
	if err := r.Create(context.Background(), c); err != nil {
		t.Fatalf("seed consultation: %v", err)
	}
	return c
}

func TestGormConsultationRepository_Filters(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC)

	seedConsultation(t, r, "u1", "d1", models.StatusScheduled, base)
	seedConsultation(t, r, "u1", "d2", models.StatusCompleted, base.Add(time.Hour))
	seedConsultation(t, r, "u2", "d1", models.StatusScheduled, base.Add(2*time.Hour))

	byUser, err := r.ListByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(byUser) != 2 {
		t.Errorf("expected 2 consultations for u1, got %d", len(byUser))
	}

	byDoctor, err := r.ListByDoctor(ctx, "d1")
	if err != nil {
		t.Fatalf("ListByDoctor: %v", err)
	}
	if len(byDoctor) != 2 {
		t.Errorf("expected 2 consultations for d1, got %d", len(byDoctor))
	}

	scheduled, err := r.ListByStatus(ctx, models.StatusScheduled)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(scheduled) != 2 {
		t.Errorf("expected 2 scheduled consultations, got %d", len(scheduled))
	}

	userScheduled, err := r.ListByUserAndStatus(ctx, "u1", models.StatusScheduled)
	if err != nil {
		t.Fatalf("ListByUserAndStatus: %v", err)
	}
	if len(userScheduled) != 1 {
		t.Errorf("expected 1 scheduled consultation for u1, got %d", len(userScheduled))
	}

	doctorScheduled, err := r.ListByDoctorAndStatus(ctx, "d1", models.StatusScheduled)
	if err != nil {
		t.Fatalf("ListByDoctorAndStatus: %v", err)
	}
	if len(doctorScheduled) != 2 {
		t.Errorf("expected 2 scheduled consultations for d1, got %d", len(doctorScheduled))
	}

	all, err := r.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 consultations total, got %d", len(all))
	}
}

func TestGormConsultationRepository_DateRangeIsInclusive(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	start := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	end := time.Date(2026, 9, 10, 17, 0, 0, 0, time.UTC)

	seedConsultation(t, r, "u1", "d1", models.StatusScheduled, start)               // lower bound
	seedConsultation(t, r, "u1", "d1", models.StatusScheduled, end)                 // upper bound
	seedConsultation(t, r, "u1", "d1", models.StatusScheduled, start.Add(-time.Minute)) // before window
	seedConsultation(t, r, "u2", "d2", models.StatusScheduled, end.Add(time.Minute)) // after window

	got, err := r.ListByDateRange(ctx, start, end)
	if err != nil {
		t.Fatalf("ListByDateRange: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected both boundary consultations, got %d", len(got))
	}

	byUser, err := r.ListByUserAndDateRange(ctx, "u1", start, end)
	if err != nil {
		t.Fatalf("ListByUserAndDateRange: %v", err)
	}
	if len(byUser) != 2 {
		t.Errorf("expected 2 consultations for u1 in range, got %d", len(byUser))
	}

	byDoctor, err := r.ListByDoctorAndDateRange(ctx, "d2", start, end)
	if err != nil {
		t.Fatalf("ListByDoctorAndDateRange: %v", err)
	}
	if len(byDoctor) != 0 {
		t.Errorf("expected no consultations for d2 in range, got %d", len(byDoctor))
	}
}

func TestGormConsultationRepository_ListOverdueIsStrict(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)

	past := seedConsultation(t, r, "u1", "d1", models.StatusScheduled, now.Add(-time.Hour))
	seedConsultation(t, r, "u1", "d1", models.StatusScheduled, now)                  // exactly now: not overdue
	seedConsultation(t, r, "u1", "d1", models.StatusScheduled, now.Add(time.Hour))   // future
	seedConsultation(t, r, "u1", "d1", models.StatusCompleted, now.Add(-2*time.Hour)) // past but completed

	overdue, err := r.ListOverdue(ctx, now)
	if err != nil {
		t.Fatalf("ListOverdue: %v", err)
	}
	if len(overdue) != 1 {
		t.Fatalf("expected exactly 1 overdue consultation, got %d", len(overdue))
	}
	if overdue[0].ID != past.ID {
		t.Errorf("expected overdue consultation %s, got %s", past.ID, overdue[0].ID)
	}
}

func TestGormConsultationRepository_UpdateWithVersion(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	c := seedConsultation(t, r, "u1", "d1", models.StatusScheduled, time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC))

	c.Notes = "first write"
	if err := r.UpdateWithVersion(ctx, c, 1); err != nil {
		t.Fatalf("UpdateWithVersion: %v", err)
	}
	if c.Version != 2 {
		t.Errorf("expected version bumped to 2, got %d", c.Version)
	}

	stored, err := r.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Notes != "first write" || stored.Version != 2 {
		t.Errorf("stored record not updated: notes=%q version=%d", stored.Notes, stored.Version)
	}

	// A second write against the old version must fail.
	stale := *stored
	stale.Notes = "stale write"
	if err := r.UpdateWithVersion(ctx, &stale, 1); !errors.Is(err, ErrStaleRecord) {
		t.Errorf("expected ErrStaleRecord, got %v", err)
	}
}

func TestGormConsultationRepository_Delete(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	c := seedConsultation(t, r, "u1", "d1", models.StatusScheduled, time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC))

	if err := r.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := r.GetByID(ctx, c.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected gorm.ErrRecordNotFound after delete, got %v", err)
	}
}
