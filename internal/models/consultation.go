package models

import (
	"time"
)

// ConsultationStatus represents the lifecycle state of a consultation
type ConsultationStatus string

const (
	StatusScheduled  ConsultationStatus = "SCHEDULED"
	StatusInProgress ConsultationStatus = "IN_PROGRESS"
	StatusCompleted  ConsultationStatus = "COMPLETED"
	StatusCancelled  ConsultationStatus = "CANCELLED"
	StatusNoShow     ConsultationStatus = "NO_SHOW"
)

// ConsultationType represents how the consultation is conducted
type ConsultationType string

const (
	TypeVideoCall ConsultationType = "VIDEO_CALL"
	TypeAudioCall ConsultationType = "AUDIO_CALL"
	TypeChat      ConsultationType = "CHAT"
	TypeInPerson  ConsultationType = "IN_PERSON"
)

// ValidStatus reports whether s is one of the known consultation statuses.
func ValidStatus(s ConsultationStatus) bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Consultation represents a scheduled appointment between a user and a doctor.
// UserID and DoctorID reference records owned by other services and are not
// verified here. ConsultationFee is a snapshot taken at creation time and is
// never re-resolved. Version is an optimistic-concurrency counter incremented
// on every successful write.
type Consultation struct {
	BaseModel
	UserID              string             `gorm:"size:36;not null;index" json:"userId"`
	DoctorID            string             `gorm:"size:36;not null;index" json:"doctorId"`
	AppointmentDateTime time.Time          `gorm:"not null;index" json:"appointmentDateTime"`
	Status              ConsultationStatus `gorm:"size:20;not null;index" json:"status"`
	Type                ConsultationType   `gorm:"size:20;not null" json:"type"`
	Symptoms            string             `gorm:"type:text" json:"symptoms"`
	Diagnosis           string             `gorm:"type:text" json:"diagnosis"`
	Prescription        string             `gorm:"type:text" json:"prescription"`
	Notes               string             `gorm:"type:text" json:"notes"`
	ConsultationFee     float64            `gorm:"not null" json:"consultationFee"`
	MeetingLink         string             `gorm:"size:255;not null" json:"meetingLink"`
	Version             int                `gorm:"not null;default:1" json:"version"`
}
