package handler

import (
	"prms/internal/pid"
	"prms/internal/pid/service"
	"prms/internal/wristband"
)

// IssueResponse is returned by POST /pids.
type IssueResponse struct {
	PID        string         `json:"pid"`
	Components pid.Components `json:"components"`
	QRPayload  string         `json:"qr_payload"`
}

// ValidationResponse is returned by GET /pids/{pid}/validation.
type ValidationResponse struct {
	PID     string `json:"pid"`
	Valid   bool   `json:"valid"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// WristbandResponse is returned by POST /pids/{pid}/wristband.
type WristbandResponse struct {
	JobID   string `json:"job_id"`
	PID     string `json:"pid"`
	Printer string `json:"printer"`
}

func toIssueResponse(issued *service.Issued) IssueResponse {
	return IssueResponse{
		PID:        issued.PID,
		Components: issued.Components,
		QRPayload:  issued.QRPayload,
	}
}

func toValidationResponse(candidate string, v pid.Validation) ValidationResponse {
	resp := ValidationResponse{PID: candidate, Valid: v.Valid}
	if !v.Valid {
		resp.Error = v.Kind.String()
		resp.Message = v.Kind.Message()
	}
	return resp
}

func toWristbandResponse(job *wristband.Job) WristbandResponse {
	return WristbandResponse{
		JobID:   job.ID,
		PID:     job.PID,
		Printer: job.Printer,
	}
}
