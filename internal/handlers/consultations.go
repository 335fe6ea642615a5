package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"consultation-service/internal/models"
	"consultation-service/internal/service"
	"consultation-service/internal/utils"
)

// ConsultationHandler handles consultation related requests.
type ConsultationHandler struct {
	svc *service.ConsultationService
	log zerolog.Logger
}

// NewConsultationHandler creates a new ConsultationHandler.
func NewConsultationHandler(svc *service.ConsultationService, log zerolog.Logger) *ConsultationHandler {
	return &ConsultationHandler{svc: svc, log: log}
}

// CreateConsultationRequest represents the request body for booking a consultation.
type CreateConsultationRequest struct {
	UserID              string                  `json:"userId" binding:"required"`
	DoctorID            string                  `json:"doctorId" binding:"required"`
	AppointmentDateTime time.Time               `json:"appointmentDateTime" binding:"required"`
	Type                models.ConsultationType `json:"type" binding:"required,oneof=VIDEO_CALL AUDIO_CALL CHAT IN_PERSON"`
	Symptoms            string                  `json:"symptoms"`
	ConsultationFee     *float64                `json:"consultationFee" binding:"omitempty,gte=0"`
}

// CreateConsultation handles booking a new consultation.
func (h *ConsultationHandler) CreateConsultation(c *gin.Context) {
	var req CreateConsultationRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if !req.AppointmentDateTime.After(time.Now()) {
		utils.BadRequest(c, "Appointment date must be in the future.")
		return
	}

	consultation, err := h.svc.Create(c.Request.Context(), service.CreateInput{
		UserID:              req.UserID,
		DoctorID:            req.DoctorID,
		AppointmentDateTime: req.AppointmentDateTime,
		Type:                req.Type,
		Symptoms:            req.Symptoms,
		ConsultationFee:     req.ConsultationFee,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	utils.Created(c, "Consultation created successfully", consultation)
}

// GetConsultationByID handles fetching a single consultation.
func (h *ConsultationHandler) GetConsultationByID(c *gin.Context) {
	consultation, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.Success(c, "Consultation fetched successfully", consultation)
}

// GetConsultations handles listing all consultations.
func (h *ConsultationHandler) GetConsultations(c *gin.Context) {
	consultations, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.Success(c, "Consultations fetched successfully", consultations)
}

// GetConsultationsByUser handles listing a user's consultations.
func (h *ConsultationHandler) GetConsultationsByUser(c *gin.Context) {
	consultations, err := h.svc.ListByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.Success(c, "Consultations fetched successfully", consultations)
}

// GetConsultationsByDoctor handles listing a doctor's consultations.
func (h *ConsultationHandler) GetConsultationsByDoctor(c *gin.Context) {
	consultations, err := h.svc.ListByDoctor(c.Request.Context(), c.Param("doctorId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.Success(c, "Consultations fetched successfully", consultations)
}

// GetConsultationsByStatus handles listing consultations in a given status.
func (h *ConsultationHandler) GetConsultationsByStatus(c *gin.Context) {
	consultations, err := h.svc.ListByStatus(c.Request.Context(), models.ConsultationStatus(c.Param("status")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.Success(c, "Consultations fetched successfully", consultations)
}

// GetConsultationsByUserAndStatus combines the user and status filters.
func (h *ConsultationHandler) GetConsultationsByUserAndStatus(c *gin.Context) {
	consultations, err := h.svc.ListByUserAndStatus(
		c.Request.Context(), c.Param("userId"), models.ConsultationStatus(c.Param("status")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.Success(c, "Consultations fetched successfully", consultations)
}

// GetConsultationsByDoctorAndStatus combines the doctor and status filters.
func (h *ConsultationHandler) GetConsultationsByDoctorAndStatus(c *gin.Context) {
	consultations, err := h.svc.ListByDoctorAndStatus(
		c.Request.Context(), c.Param("doctorId"), models.ConsultationStatus(c.Param("status")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.Success(c, "Consultations fetched successfully", consultations)
}

// GetConsultationsByDateRange lists consultations inside an inclusive window.
// Bounds come as RFC3339 "start" and "end" query parameters.
func (h *ConsultationHandler) GetConsultationsByDateRange(c *gin.Context) {
	start, end, ok := parseDateRange(c)
	if !ok {
		return
	}
	consultations, err := h.svc.ListByDateRange(c.Request.Context(), start, end)
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.Success(c, "Consultations fetched successfully", consultations)
}

// GetConsultationsByUserAndDateRange scopes the range query to one user.
func (h *ConsultationHandler) GetConsultationsByUserAndDateRange(c *gin.Context) {
	start, end, ok := parseDateRange(c)
	if !ok {
		return
	}
	consultations, err := h.svc.ListByUserAndDateRange(c.Request.Context(), c.Param("userId"), start, end)
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.Success(c, "Consultations fetched successfully", consultations)
}

// GetConsultationsByDoctorAndDateRange scopes the range query to one doctor.
func (h *ConsultationHandler) GetConsultationsByDoctorAndDateRange(c *gin.Context) {
	start, end, ok := parseDateRange(c)
	if !ok {
		return
	}
	consultations, err := h.svc.ListByDoctorAndDateRange(c.Request.Context(), c.Param("doctorId"), start, end)
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.Success(c, "Consultations fetched successfully", consultations)
}

// GetOverdueConsultations lists SCHEDULED consultations whose time has passed.
func (h *ConsultationHandler) GetOverdueConsultations(c *gin.Context) {
	consultations, err := h.svc.ListOverdue(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	utils.Success(c, "Overdue consultations fetched successfully", consultations)
}

// UpdateConsultationRequest is a whole-record replacement of the mutable fields.
type UpdateConsultationRequest struct {
	AppointmentDateTime time.Time                 `json:"appointmentDateTime" binding:"required"`
	Status              models.ConsultationStatus `json:"status" binding:"required,oneof=SCHEDULED IN_PROGRESS COMPLETED CANCELLED NO_SHOW"`
	Type                models.ConsultationType   `json:"type" binding:"required,oneof=VIDEO_CALL AUDIO_CALL CHAT IN_PERSON"`
	Symptoms            string                    `json:"symptoms"`
	Diagnosis           string                    `json:"diagnosis"`
	Prescription        string                    `json:"prescription"`
	Notes               string                    `json:"notes"`
	Version             *int                      `json:"version" binding:"omitempty,gte=1"`
}

// UpdateConsultation handles a full update of a consultation.
func (h *ConsultationHandler) UpdateConsultation(c *gin.Context) {
	var req UpdateConsultationRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	consultation, err := h.svc.Update(c.Request.Context(), c.Param("id"), service.UpdateInput{
		AppointmentDateTime: req.AppointmentDateTime,
		Status:              req.Status,
		Type:                req.Type,
		Symptoms:            req.Symptoms,
		Diagnosis:           req.Diagnosis,
		Prescription:        req.Prescription,
		Notes:               req.Notes,
		Version:             req.Version,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	utils.Success(c, "Consultation updated successfully", consultation)
}

// DeleteConsultation handles permanent removal of a consultation.
func (h *ConsultationHandler) DeleteConsultation(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	utils.NoContent(c)
}

// UpdateStatusRequest represents the request body for a status patch.
type UpdateStatusRequest struct {
	Status  models.ConsultationStatus `json:"status" binding:"required,oneof=SCHEDULED IN_PROGRESS COMPLETED CANCELLED NO_SHOW"`
	Version *int                      `json:"version" binding:"omitempty,gte=1"`
}

// UpdateConsultationStatus handles overwriting the consultation status.
func (h *ConsultationHandler) UpdateConsultationStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	consultation, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, req.Version)
	if err != nil {
		h.respondError(c, err)
		return
	}

	utils.Success(c, "Consultation status updated successfully", consultation)
}

// UpdateDiagnosisRequest represents the request body for recording a diagnosis.
type UpdateDiagnosisRequest struct {
	Diagnosis    string `json:"diagnosis" binding:"required"`
	Prescription string `json:"prescription" binding:"required"`
	Notes        string `json:"notes" binding:"required"`
	Version      *int   `json:"version" binding:"omitempty,gte=1"`
}

// UpdateConsultationDiagnosis records the clinical outcome and completes the
// consultation.
func (h *ConsultationHandler) UpdateConsultationDiagnosis(c *gin.Context) {
	var req UpdateDiagnosisRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	consultation, err := h.svc.UpdateDiagnosis(
		c.Request.Context(), c.Param("id"), req.Diagnosis, req.Prescription, req.Notes, req.Version)
	if err != nil {
		h.respondError(c, err)
		return
	}

	utils.Success(c, "Consultation diagnosis updated successfully", consultation)
}

// RegenerateMeetingLinkRequest optionally carries the version the caller read.
type RegenerateMeetingLinkRequest struct {
	Version *int `json:"version" binding:"omitempty,gte=1"`
}

// RegenerateMeetingLink replaces the consultation's meeting link.
func (h *ConsultationHandler) RegenerateMeetingLink(c *gin.Context) {
	var req RegenerateMeetingLinkRequest
	// The body is optional for this endpoint. ContentLength is -1 for
	// chunked requests, which still carry a body.
	if c.Request.ContentLength != 0 && !utils.BindAndValidate(c, &req) {
		return
	}

	consultation, err := h.svc.RegenerateMeetingLink(c.Request.Context(), c.Param("id"), req.Version)
	if err != nil {
		h.respondError(c, err)
		return
	}

	utils.Success(c, "Meeting link generated successfully", consultation)
}

func (h *ConsultationHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, service.ErrConflict):
		utils.Conflict(c, err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		utils.BadRequest(c, err.Error())
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		utils.InternalServerError(c, "Internal server error")
	}
}

func parseDateRange(c *gin.Context) (time.Time, time.Time, bool) {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		utils.BadRequest(c, "Invalid start parameter, expected RFC3339 timestamp")
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		utils.BadRequest(c, "Invalid end parameter, expected RFC3339 timestamp")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
