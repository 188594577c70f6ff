package handler

import (
	"net/http"

	"github.com/tuntasinaja/notify/internal/api/respond"
	"github.com/tuntasinaja/notify/internal/dispatch"
)

// cronResponse is the JSON body returned by every trigger endpoint.
type cronResponse struct {
	Success          bool     `json:"success"`
	Message          string   `json:"message"`
	SentCount        int      `json:"sentCount"`
	FailedCount      int      `json:"failedCount"`
	ClassesProcessed int      `json:"classesProcessed"`
	LedgerMarked     int      `json:"ledgerMarked,omitempty"`
	EndpointsDeleted int      `json:"endpointsDeleted,omitempty"`
	Errors           []string `json:"errors,omitempty"`
}

func writeSummary(w http.ResponseWriter, message string, s dispatch.Summary) {
	respond.WriteJSONObject(w, http.StatusOK, cronResponse{
		Success:          true,
		Message:          message,
		SentCount:        s.Sent,
		FailedCount:      s.Failed,
		ClassesProcessed: s.ClassesProcessed,
		LedgerMarked:     s.LedgerMarked,
		EndpointsDeleted: s.EndpointsDeleted,
		Errors:           s.Errors,
	})
}

// DeadlineReminder triggers the deadline threshold job.
// POST /api/cron/deadline-reminder
func (h *Handler) DeadlineReminder(w http.ResponseWriter, r *http.Request) {
	summary := h.orch.RunDeadline(r.Context())
	writeSummary(w, "Deadline reminders processed", summary)
}

// ScheduleReminder triggers the next-day schedule job. The detail level is
// selected with ?detail=full (per-user pending counts) or ?detail=summary;
// summary is the default.
// POST /api/cron/schedule-reminder
func (h *Handler) ScheduleReminder(w http.ResponseWriter, r *http.Request) {
	level := dispatch.LevelSummary
	if r.URL.Query().Get("detail") == "full" {
		level = dispatch.LevelDetailed
	}
	summary := h.orch.RunSchedule(r.Context(), level)
	writeSummary(w, "Schedule reminders processed", summary)
}

// PersonalReminder triggers the per-user reminder-time job.
// POST /api/cron/personal-reminder
func (h *Handler) PersonalReminder(w http.ResponseWriter, r *http.Request) {
	summary := h.orch.RunPersonal(r.Context())
	writeSummary(w, "Personal reminders processed", summary)
}
