package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"consultation-service/internal/models"
)

// ErrStaleRecord is returned by UpdateWithVersion when the stored version no
// longer matches the version the caller read.
var ErrStaleRecord = errors.New("consultation was modified by another request")

// ConsultationRepository is the persistence contract for consultation records.
type ConsultationRepository interface {
	Create(ctx context.Context, c *models.Consultation) error
	GetByID(ctx context.Context, id string) (*models.Consultation, error)
	List(ctx context.Context) ([]models.Consultation, error)
	ListByUser(ctx context.Context, userID string) ([]models.Consultation, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]models.Consultation, error)
	ListByStatus(ctx context.Context, status models.ConsultationStatus) ([]models.Consultation, error)
	ListByUserAndStatus(ctx context.Context, userID string, status models.ConsultationStatus) ([]models.Consultation, error)
	ListByDoctorAndStatus(ctx context.Context, doctorID string, status models.ConsultationStatus) ([]models.Consultation, error)
	ListByDateRange(ctx context.Context, start, end time.Time) ([]models.Consultation, error)
	ListByUserAndDateRange(ctx context.Context, userID string, start, end time.Time) ([]models.Consultation, error)
	ListByDoctorAndDateRange(ctx context.Context, doctorID string, start, end time.Time) ([]models.Consultation, error)
	// ListOverdue returns consultations still SCHEDULED whose appointment time
	// is strictly before now.
	ListOverdue(ctx context.Context, now time.Time) ([]models.Consultation, error)
	// Update persists the full record unconditionally (last writer wins).
	Update(ctx context.Context, c *models.Consultation) error
	// UpdateWithVersion persists the full record only if the stored version
	// still equals expected, bumping the version column on success.
	UpdateWithVersion(ctx context.Context, c *models.Consultation, expected int) error
	Delete(ctx context.Context, id string) error
}

// GormConsultationRepository implements ConsultationRepository on GORM.
type GormConsultationRepository struct {
	db *gorm.DB
}

func NewGormConsultationRepository(db *gorm.DB) *GormConsultationRepository {
	return &GormConsultationRepository{db: db}
}

func (r *GormConsultationRepository) Create(ctx context.Context, c *models.Consultation) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *GormConsultationRepository) GetByID(ctx context.Context, id string) (*models.Consultation, error) {
	var c models.Consultation
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormConsultationRepository) List(ctx context.Context) ([]models.Consultation, error) {
	return r.find(r.db.WithContext(ctx))
}

func (r *GormConsultationRepository) ListByUser(ctx context.Context, userID string) ([]models.Consultation, error) {
	return r.find(r.db.WithContext(ctx).Where("user_id = ?", userID))
}

func (r *GormConsultationRepository) ListByDoctor(ctx context.Context, doctorID string) ([]models.Consultation, error) {
	return r.find(r.db.WithContext(ctx).Where("doctor_id = ?", doctorID))
}

func (r *GormConsultationRepository) ListByStatus(ctx context.Context, status models.ConsultationStatus) ([]models.Consultation, error) {
	return r.find(r.db.WithContext(ctx).Where("status = ?", status))
}

func (r *GormConsultationRepository) ListByUserAndStatus(ctx context.Context, userID string, status models.ConsultationStatus) ([]models.Consultation, error) {
	return r.find(r.db.WithContext(ctx).Where("user_id = ? AND status = ?", userID, status))
}

func (r *GormConsultationRepository) ListByDoctorAndStatus(ctx context.Context, doctorID string, status models.ConsultationStatus) ([]models.Consultation, error) {
	return r.find(r.db.WithContext(ctx).Where("doctor_id = ? AND status = ?", doctorID, status))
}

func (r *GormConsultationRepository) ListByDateRange(ctx context.Context, start, end time.Time) ([]models.Consultation, error) {
	return r.find(r.db.WithContext(ctx).
		Where("appointment_date_time >= ? AND appointment_date_time <= ?", start, end))
}

func (r *GormConsultationRepository) ListByUserAndDateRange(ctx context.Context, userID string, start, end time.Time) ([]models.Consultation, error) {
	return r.find(r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("appointment_date_time >= ? AND appointment_date_time <= ?", start, end))
}

func (r *GormConsultationRepository) ListByDoctorAndDateRange(ctx context.Context, doctorID string, start, end time.Time) ([]models.Consultation, error) {
	return r.find(r.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Where("appointment_date_time >= ? AND appointment_date_time <= ?", start, end))
}

func (r *GormConsultationRepository) ListOverdue(ctx context.Context, now time.Time) ([]models.Consultation, error) {
	return r.find(r.db.WithContext(ctx).
		Where("status = ? AND appointment_date_time < ?", models.StatusScheduled, now))
}

func (r *GormConsultationRepository) Update(ctx context.Context, c *models.Consultation) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *GormConsultationRepository) UpdateWithVersion(ctx context.Context, c *models.Consultation, expected int) error {
	c.Version = expected + 1
	res := r.db.WithContext(ctx).
		Model(&models.Consultation{}).
		Where("id = ? AND version = ?", c.ID, expected).
		Select("*").
		Omit("id", "created_at").
		Updates(c)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleRecord
	}
	return nil
}

func (r *GormConsultationRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.Consultation{}, "id = ?", id).Error
}

func (r *GormConsultationRepository) find(q *gorm.DB) ([]models.Consultation, error) {
	var consultations []models.Consultation
	if err := q.Order("appointment_date_time ASC").Find(&consultations).Error; err != nil {
		return nil, err
	}
	return consultations, nil
}
