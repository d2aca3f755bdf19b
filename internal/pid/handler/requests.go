package handler

import (
	"strings"

	dErrors "prms/pkg/domain-errors"
)

// WristbandRequest is the optional body of POST /pids/{pid}/wristband.
type WristbandRequest struct {
	Printer string `json:"printer"`
}

// Validate trims the printer name and bounds its length. Character rules
// are enforced by the dispatcher.
func (r *WristbandRequest) Validate() error {
	r.Printer = strings.TrimSpace(r.Printer)
	if len(r.Printer) > 32 {
		return dErrors.New(dErrors.CodeValidation, "printer name is too long")
	}
	return nil
}
