package entity

// SessionStatus is the per-period attendance mark shown by the portal.
type SessionStatus string

const (
	SessionPresent   SessionStatus = "Present"
	SessionAbsent    SessionStatus = "Absent"
	SessionNotMarked SessionStatus = "Not Marked"
)

// AttendanceSnapshot is what the attendance page showed at scrape time.
type AttendanceSnapshot struct {
	// Rows is the table inside the expanded panel, one slice of cell texts per row.
	Rows [][]string
	// Sessions holds one status per indicator icon, in document order.
	Sessions []SessionStatus
	// OverallPercentage is nil when the progress bar was missing or unreadable.
	OverallPercentage *float64
}

// EmptyAttendance returns the default snapshot used when nothing could be read.
func EmptyAttendance() AttendanceSnapshot {
	return AttendanceSnapshot{
		Rows:     [][]string{},
		Sessions: []SessionStatus{},
	}
}

// IsEmpty reports whether no attendance data was collected at all.
func (a AttendanceSnapshot) IsEmpty() bool {
	return len(a.Rows) == 0 && len(a.Sessions) == 0 && a.OverallPercentage == nil
}
