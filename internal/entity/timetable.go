package entity

// DayEntry is one expandable day panel of the timetable page.
type DayEntry struct {
	Label string     `json:"header"`
	Rows  [][]string `json:"rows"`
}

// TimetableSnapshot keeps the day panels in the order the portal rendered them.
type TimetableSnapshot struct {
	Days []DayEntry
}

// EmptyTimetable returns the default snapshot used when nothing could be read.
func EmptyTimetable() TimetableSnapshot {
	return TimetableSnapshot{Days: []DayEntry{}}
}

func (t TimetableSnapshot) IsEmpty() bool {
	return len(t.Days) == 0
}
