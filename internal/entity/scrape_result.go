package entity

import (
	"encoding/json"
	"slices"
	"time"
)

// Scrape outcomes as stored alongside each result.
const (
	OutcomeComplete    = "complete"
	OutcomePartial     = "partial"
	OutcomeLoginFailed = "login_failed"
)

// ScrapeResult is the aggregate of one scrape attempt. It is returned even when
// the scrape failed part way, with the missing pieces left at their defaults.
type ScrapeResult struct {
	Attendance  AttendanceSnapshot
	Timetable   TimetableSnapshot
	RetrievedAt time.Time
}

// NewScrapeResult returns an all-default result stamped with retrievedAt.
func NewScrapeResult(retrievedAt time.Time) *ScrapeResult {
	return &ScrapeResult{
		Attendance:  EmptyAttendance(),
		Timetable:   EmptyTimetable(),
		RetrievedAt: retrievedAt,
	}
}

// scrapeResultJSON is the wire shape consumed by the dashboard frontend.
type scrapeResultJSON struct {
	Attendance                  [][]string      `json:"attendance"`
	Sessions                    []SessionStatus `json:"sessions"`
	OverallAttendancePercentage *float64        `json:"overall_attendance_percentage"`
	Timetable                   []DayEntry      `json:"timetable"`
	RetrievedAt                 time.Time       `json:"retrieved_at"`
}

// MarshalJSON renders unset collections as [] rather than null. The receiver
// is left untouched.
func (r ScrapeResult) MarshalJSON() ([]byte, error) {
	out := scrapeResultJSON{
		Attendance:                  r.Attendance.Rows,
		Sessions:                    r.Attendance.Sessions,
		OverallAttendancePercentage: r.Attendance.OverallPercentage,
		Timetable:                   slices.Clone(r.Timetable.Days),
		RetrievedAt:                 r.RetrievedAt,
	}
	if out.Attendance == nil {
		out.Attendance = [][]string{}
	}
	if out.Sessions == nil {
		out.Sessions = []SessionStatus{}
	}
	if out.Timetable == nil {
		out.Timetable = []DayEntry{}
	}
	for i := range out.Timetable {
		if out.Timetable[i].Rows == nil {
			out.Timetable[i].Rows = [][]string{}
		}
	}
	return json.Marshal(out)
}

func (r *ScrapeResult) UnmarshalJSON(data []byte) error {
	var in scrapeResultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = *NewScrapeResult(in.RetrievedAt)
	if in.Attendance != nil {
		r.Attendance.Rows = in.Attendance
	}
	if in.Sessions != nil {
		r.Attendance.Sessions = in.Sessions
	}
	r.Attendance.OverallPercentage = in.OverallAttendancePercentage
	if in.Timetable != nil {
		r.Timetable.Days = in.Timetable
	}
	return nil
}

// ScrapeRecord mirrors the `scrape_results` table.
type ScrapeRecord struct {
	ID           string
	MobileNumber string
	Outcome      string
	Result       *ScrapeResult
	CreatedAt    time.Time
}
