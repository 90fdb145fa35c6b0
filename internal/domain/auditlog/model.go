package auditlog

import (
	"time"

	"github.com/google/uuid"
)

// Actions written by the records API.
const (
	ActionLoginSuccess           = "LOGIN_SUCCESS"
	ActionLoginFailed            = "LOGIN_FAILED"
	ActionLoginBlocked           = "LOGIN_BLOCKED"
	ActionLoginValidationFailed  = "LOGIN_VALIDATION_FAILED"
	ActionLoginError             = "LOGIN_ERROR"
	ActionPatientsListAccessed   = "PATIENTS_LIST_ACCESSED"
	ActionPatientsListError      = "PATIENTS_LIST_ERROR"
	ActionPatientCreated         = "PATIENT_CREATED"
	ActionPatientCreateInvalid   = "PATIENT_CREATE_VALIDATION_FAILED"
	ActionPatientCreateError     = "PATIENT_CREATE_ERROR"
	ActionMedicalRecordsAccessed = "MEDICAL_RECORDS_ACCESSED"
	ActionMedicalRecordsError    = "MEDICAL_RECORDS_ERROR"
	ActionMedicalRecordCreated   = "MEDICAL_RECORD_CREATED"
	ActionMedicalRecordInvalid   = "MEDICAL_RECORD_CREATE_VALIDATION_FAILED"
	ActionMedicalRecordError     = "MEDICAL_RECORD_CREATE_ERROR"
	ActionAuditLogsAccessed      = "AUDIT_LOGS_ACCESSED"
	ActionAuditLogsError         = "AUDIT_LOGS_ERROR"
)

// Entry is one row of the audit trail.
type Entry struct {
	ID           uuid.UUID              `json:"id"`
	UserID       *uuid.UUID             `json:"userId,omitempty"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resourceType,omitempty"`
	ResourceID   string                 `json:"resourceId,omitempty"`
	Details      map[string]interface{} `json:"details"`
	IPAddress    string                 `json:"ipAddress"`
	UserAgent    string                 `json:"userAgent"`
	RequestID    string                 `json:"requestId,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
}

// Filter narrows a search. Zero values match everything.
type Filter struct {
	Action string
	UserID *uuid.UUID
}

// Page is the response body of the audit log listing.
type Page struct {
	Logs       []*Entry `json:"logs"`
	Total      int      `json:"total"`
	Page       int      `json:"page"`
	TotalPages int      `json:"totalPages"`
}
