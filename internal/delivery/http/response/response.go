package response

import (
	"encoding/json"

	"github.com/user/campus-assistant/internal/entity"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// DashboardUpdateResponse wraps a fresh scrape. Outcome is "complete" or
// "partial"; a partial result still carries everything that was read.
// The result is encoded twice: nested under "data" and with its keys
// (attendance, sessions, overall_attendance_percentage, timetable, ...)
// lifted to the top level next to message and outcome.
type DashboardUpdateResponse struct {
	Message string               `json:"message"`
	Outcome string               `json:"outcome"`
	Data    *entity.ScrapeResult `json:"data"`
}

func (r DashboardUpdateResponse) MarshalJSON() ([]byte, error) {
	return withResultKeys(r.Data, map[string]any{
		"message": r.Message,
		"outcome": r.Outcome,
	})
}

// LoginFailedResponse is returned with 502 when the portal rejected the login.
// Like DashboardUpdateResponse, the defaults are repeated at the top level.
type LoginFailedResponse struct {
	Error string               `json:"error"`
	Data  *entity.ScrapeResult `json:"data"`
}

func (r LoginFailedResponse) MarshalJSON() ([]byte, error) {
	return withResultKeys(r.Data, map[string]any{
		"error": r.Error,
	})
}

// withResultKeys merges the encoded result into envelope. Envelope keys win
// over result keys of the same name.
func withResultKeys(result *entity.ScrapeResult, envelope map[string]any) ([]byte, error) {
	out := map[string]json.RawMessage{}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	if result != nil {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
	}
	out["data"] = raw
	for k, v := range envelope {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[k] = b
	}
	return json.Marshal(out)
}

type ChatResponse struct {
	ID       string `json:"id"`
	Response string `json:"response"`
}

type ClearHistoryResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deleted_count"`
}

type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}
