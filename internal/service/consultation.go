// Package service owns the consultation lifecycle: creation with doctor-fee
// resolution, status transitions, diagnosis capture, meeting links and
// best-effort domain events.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"consultation-service/internal/config"
	"consultation-service/internal/doctor"
	"consultation-service/internal/events"
	"consultation-service/internal/meeting"
	"consultation-service/internal/models"
	"consultation-service/internal/repository"
)

var (
	// ErrNotFound means the consultation id does not exist.
	ErrNotFound = errors.New("consultation not found")
	// ErrConflict means the caller's version is stale.
	ErrConflict = errors.New("consultation was modified since it was read")
	// ErrInvalidInput means the request carries a value the core rejects
	// regardless of transport-level validation.
	ErrInvalidInput = errors.New("invalid consultation input")
)

// CreateInput carries the fields needed to schedule a consultation.
// ConsultationFee is the client's suggested fee; it is only used when the
// doctor directory cannot be reached.
type CreateInput struct {
	UserID              string
	DoctorID            string
	AppointmentDateTime time.Time
	Type                models.ConsultationType
	Symptoms            string
	ConsultationFee     *float64
}

// UpdateInput is a whole-record replacement of the mutable fields. The fee
// and meeting link are never touched by a plain update. Version, when set,
// enables optimistic locking; when nil the write is last-writer-wins.
type UpdateInput struct {
	AppointmentDateTime time.Time
	Status              models.ConsultationStatus
	Type                models.ConsultationType
	Symptoms            string
	Diagnosis           string
	Prescription        string
	Notes               string
	Version             *int
}

// ConsultationService coordinates the store, the doctor directory, the
// meeting-link generator and the event publisher. Persistence failures are
// fatal to the operation; publish failures are logged and dropped.
type ConsultationService struct {
	repo       repository.ConsultationRepository
	fees       doctor.FeeResolver
	links      meeting.LinkGenerator
	publisher  events.Publisher
	topics     config.EventsConfig
	defaultFee float64
	log        zerolog.Logger
	now        func() time.Time
}

func NewConsultationService(
	repo repository.ConsultationRepository,
	fees doctor.FeeResolver,
	links meeting.LinkGenerator,
	publisher events.Publisher,
	cfg *config.Config,
	log zerolog.Logger,
) *ConsultationService {
	return &ConsultationService{
		repo:       repo,
		fees:       fees,
		links:      links,
		publisher:  publisher,
		topics:     cfg.Events,
		defaultFee: cfg.Consultation.DefaultFee,
		log:        log,
		now:        time.Now,
	}
}

// consultationEvent is the JSON payload published for every domain event.
type consultationEvent struct {
	ConsultationID string `json:"consultationId"`
	UserID         string `json:"userId,omitempty"`
	DoctorID       string `json:"doctorId,omitempty"`
	Status         string `json:"status,omitempty"`
	MeetingLink    string `json:"meetingLink,omitempty"`
}

// Create schedules a new consultation. The doctor directory is asked for the
// current fee; if it answers, its value wins over any client-supplied fee.
// If it is unreachable the client fee is used, and failing that the
// configured default, so creation is never blocked by the directory being
// down.
func (s *ConsultationService) Create(ctx context.Context, in CreateInput) (*models.Consultation, error) {
	if in.ConsultationFee != nil && *in.ConsultationFee < 0 {
		return nil, fmt.Errorf("%w: consultation fee must not be negative", ErrInvalidInput)
	}

	fee, err := s.fees.ResolveFee(ctx, in.DoctorID)
	if err != nil {
		if !errors.Is(err, doctor.ErrUnavailable) {
			return nil, fmt.Errorf("resolve fee: %w", err)
		}
		if in.ConsultationFee != nil {
			fee = *in.ConsultationFee
		} else {
			fee = s.defaultFee
		}
		s.log.Warn().Err(err).
			Str("doctorId", in.DoctorID).
			Float64("fee", fee).
			Msg("doctor directory unavailable, using fallback fee")
	}

	c := &models.Consultation{
		UserID:              in.UserID,
		DoctorID:            in.DoctorID,
		AppointmentDateTime: in.AppointmentDateTime,
		Status:              models.StatusScheduled,
		Type:                in.Type,
		Symptoms:            in.Symptoms,
		ConsultationFee:     fee,
		MeetingLink:         s.links.Generate(),
		Version:             1,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create consultation: %w", err)
	}

	s.log.Info().
		Str("consultationId", c.ID).
		Str("userId", c.UserID).
		Str("doctorId", c.DoctorID).
		Float64("fee", c.ConsultationFee).
		Msg("consultation created")

	s.publish(ctx, s.topics.CreatedTopic, consultationEvent{
		ConsultationID: c.ID,
		UserID:         c.UserID,
		DoctorID:       c.DoctorID,
		Status:         string(c.Status),
	})

	return c, nil
}

// GetByID returns a single consultation or ErrNotFound.
func (s *ConsultationService) GetByID(ctx context.Context, id string) (*models.Consultation, error) {
	return s.get(ctx, id)
}

func (s *ConsultationService) List(ctx context.Context) ([]models.Consultation, error) {
	return s.repo.List(ctx)
}

func (s *ConsultationService) ListByUser(ctx context.Context, userID string) ([]models.Consultation, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *ConsultationService) ListByDoctor(ctx context.Context, doctorID string) ([]models.Consultation, error) {
	return s.repo.ListByDoctor(ctx, doctorID)
}

func (s *ConsultationService) ListByStatus(ctx context.Context, status models.ConsultationStatus) ([]models.Consultation, error) {
	if !models.ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return s.repo.ListByStatus(ctx, status)
}

func (s *ConsultationService) ListByUserAndStatus(ctx context.Context, userID string, status models.ConsultationStatus) ([]models.Consultation, error) {
	if !models.ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return s.repo.ListByUserAndStatus(ctx, userID, status)
}

func (s *ConsultationService) ListByDoctorAndStatus(ctx context.Context, doctorID string, status models.ConsultationStatus) ([]models.Consultation, error) {
	if !models.ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return s.repo.ListByDoctorAndStatus(ctx, doctorID, status)
}

// ListByDateRange returns consultations with an appointment time inside the
// inclusive [start, end] window. Bounds are taken as given; an inverted
// range matches nothing.
func (s *ConsultationService) ListByDateRange(ctx context.Context, start, end time.Time) ([]models.Consultation, error) {
	return s.repo.ListByDateRange(ctx, start, end)
}

func (s *ConsultationService) ListByUserAndDateRange(ctx context.Context, userID string, start, end time.Time) ([]models.Consultation, error) {
	return s.repo.ListByUserAndDateRange(ctx, userID, start, end)
}

func (s *ConsultationService) ListByDoctorAndDateRange(ctx context.Context, doctorID string, start, end time.Time) ([]models.Consultation, error) {
	return s.repo.ListByDoctorAndDateRange(ctx, doctorID, start, end)
}

// ListOverdue returns consultations still SCHEDULED whose appointment time
// has passed. It does not transition them; marking no-shows is a human
// decision made through UpdateStatus.
func (s *ConsultationService) ListOverdue(ctx context.Context) ([]models.Consultation, error) {
	return s.repo.ListOverdue(ctx, s.now())
}

// Update replaces the mutable fields of a consultation. The fee keeps the
// value captured at creation.
func (s *ConsultationService) Update(ctx context.Context, id string, in UpdateInput) (*models.Consultation, error) {
	if !models.ValidStatus(in.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, in.Status)
	}

	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	c.AppointmentDateTime = in.AppointmentDateTime
	c.Status = in.Status
	c.Type = in.Type
	c.Symptoms = in.Symptoms
	c.Diagnosis = in.Diagnosis
	c.Prescription = in.Prescription
	c.Notes = in.Notes

	if err := s.save(ctx, c, in.Version); err != nil {
		return nil, err
	}

	s.log.Info().Str("consultationId", c.ID).Msg("consultation updated")
	s.publish(ctx, s.topics.UpdatedTopic, consultationEvent{
		ConsultationID: c.ID,
		Status:         string(c.Status),
	})

	return c, nil
}

// Delete permanently removes a consultation.
func (s *ConsultationService) Delete(ctx context.Context, id string) error {
	c, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete consultation: %w", err)
	}

	s.log.Info().Str("consultationId", id).Msg("consultation deleted")
	s.publish(ctx, s.topics.DeletedTopic, consultationEvent{
		ConsultationID: c.ID,
		UserID:         c.UserID,
		DoctorID:       c.DoctorID,
	})

	return nil
}

// UpdateStatus overwrites the status unconditionally. Any status may replace
// any other; there is deliberately no transition table.
func (s *ConsultationService) UpdateStatus(ctx context.Context, id string, status models.ConsultationStatus, version *int) (*models.Consultation, error) {
	if !models.ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	c.Status = status
	if err := s.save(ctx, c, version); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("consultationId", c.ID).
		Str("status", string(status)).
		Msg("consultation status updated")
	s.publish(ctx, s.topics.StatusUpdatedTopic, consultationEvent{
		ConsultationID: c.ID,
		Status:         string(status),
	})

	return c, nil
}

// UpdateDiagnosis records the clinical outcome and forces the consultation
// to COMPLETED regardless of its prior status. This is the only operation
// that implies a status transition.
func (s *ConsultationService) UpdateDiagnosis(ctx context.Context, id, diagnosis, prescription, notes string, version *int) (*models.Consultation, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	c.Diagnosis = diagnosis
	c.Prescription = prescription
	c.Notes = notes
	c.Status = models.StatusCompleted

	if err := s.save(ctx, c, version); err != nil {
		return nil, err
	}

	s.log.Info().Str("consultationId", c.ID).Msg("consultation diagnosis updated")
	s.publish(ctx, s.topics.StatusUpdatedTopic, consultationEvent{
		ConsultationID: c.ID,
		Status:         string(models.StatusCompleted),
	})

	return c, nil
}

// RegenerateMeetingLink replaces the meeting link with a fresh one.
func (s *ConsultationService) RegenerateMeetingLink(ctx context.Context, id string, version *int) (*models.Consultation, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	c.MeetingLink = s.links.Generate()
	if err := s.save(ctx, c, version); err != nil {
		return nil, err
	}

	s.log.Info().Str("consultationId", c.ID).Msg("meeting link regenerated")
	s.publish(ctx, s.topics.MeetingLinkTopic, consultationEvent{
		ConsultationID: c.ID,
		MeetingLink:    c.MeetingLink,
	})

	return c, nil
}

func (s *ConsultationService) get(ctx context.Context, id string) (*models.Consultation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get consultation: %w", err)
	}
	return c, nil
}

// save persists a mutated record. With a caller-supplied version the write is
// a compare-and-swap; without one it keeps the original last-writer-wins
// behavior.
func (s *ConsultationService) save(ctx context.Context, c *models.Consultation, version *int) error {
	if version != nil {
		if *version != c.Version {
			return fmt.Errorf("%w: have %d, want %d", ErrConflict, *version, c.Version)
		}
		if err := s.repo.UpdateWithVersion(ctx, c, *version); err != nil {
			if errors.Is(err, repository.ErrStaleRecord) {
				return fmt.Errorf("%w: concurrent write", ErrConflict)
			}
			return fmt.Errorf("update consultation: %w", err)
		}
		return nil
	}

	c.Version++
	if err := s.repo.Update(ctx, c); err != nil {
		return fmt.Errorf("update consultation: %w", err)
	}
	return nil
}

// publish emits a domain event and swallows any failure. Events are advisory;
// the persisted record is the source of truth.
func (s *ConsultationService) publish(ctx context.Context, topic string, evt consultationEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		s.log.Warn().Err(err).Str("topic", topic).Msg("failed to encode event")
		return
	}
	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		s.log.Warn().Err(err).
			Str("topic", topic).
			Str("consultationId", evt.ConsultationID).
			Msg("failed to publish event")
	}
}
