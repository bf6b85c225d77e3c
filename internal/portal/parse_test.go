package portal

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/campus-assistant/internal/entity"
)

var defaultColours = IndicatorColours{Present: "green", Absent: []string{"red", "#ff4d4f"}}

func attendancePage(barStyle string, fills ...string) string {
	html := `<html><body><div class="ant-collapse-content ant-collapse-content-active">`
	if barStyle != "" {
		html += fmt.Sprintf(`<div class="ant-progress-bg" style="%s"></div>`, barStyle)
	}
	for _, f := range fills {
		if f == "" {
			html += `<span><svg></svg></span>`
			continue
		}
		html += fmt.Sprintf(`<span><svg fill="%s"></svg></span>`, f)
	}
	return html + `</div></body></html>`
}

func TestParseAttendancePercentage(t *testing.T) {
	tests := []struct {
		name    string
		style   string
		want    *float64
		wantErr bool
	}{
		{name: "fractional width", style: "width: 87.5%; height: 8px;", want: ptr(87.5)},
		{name: "no space", style: "width:100%", want: ptr(100)},
		{name: "zero", style: "width: 0%", want: ptr(0)},
		{name: "pixels", style: "width: 120px", wantErr: true},
		{name: "above one hundred", style: "width: 120%", wantErr: true},
		{name: "no width", style: "height: 8px", wantErr: true},
		{name: "bar missing", style: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := ParseAttendance(attendancePage(tt.style), defaultColours)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrStructuralChange)
				assert.Nil(t, snap.OverallPercentage)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, snap.OverallPercentage)
			assert.InDelta(t, *tt.want, *snap.OverallPercentage, 1e-9)
		})
	}
}

func TestParseAttendanceSessions(t *testing.T) {
	tests := []struct {
		name  string
		fills []string
		want  []entity.SessionStatus
	}{
		{
			name:  "present absent present",
			fills: []string{"green", "red", "green"},
			want:  []entity.SessionStatus{entity.SessionPresent, entity.SessionAbsent, entity.SessionPresent},
		},
		{
			name:  "hex absent and upper case",
			fills: []string{"#FF4D4F", "GREEN"},
			want:  []entity.SessionStatus{entity.SessionAbsent, entity.SessionPresent},
		},
		{
			name:  "unknown colour and missing fill",
			fills: []string{"grey", ""},
			want:  []entity.SessionStatus{entity.SessionNotMarked, entity.SessionNotMarked},
		},
		{
			name:  "no indicators",
			fills: nil,
			want:  []entity.SessionStatus{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := ParseAttendance(attendancePage("width: 50%", tt.fills...), defaultColours)
			require.NoError(t, err)
			assert.Equal(t, tt.want, snap.Sessions)
		})
	}
}

func TestParseAttendanceKeepsDataWhenBarMissing(t *testing.T) {
	snap, err := ParseAttendance(attendancePage("", "green", "red"), defaultColours)

	require.ErrorIs(t, err, ErrStructuralChange)
	assert.Nil(t, snap.OverallPercentage)
	assert.Equal(t, []entity.SessionStatus{entity.SessionPresent, entity.SessionAbsent}, snap.Sessions)
}

func TestParseAttendanceFixture(t *testing.T) {
	snap, err := ParseAttendance(attendanceFixture, defaultColours)
	require.NoError(t, err)

	require.NotNil(t, snap.OverallPercentage)
	assert.Equal(t, 87.5, *snap.OverallPercentage)
	// The inactive "Last 2 Weeks" panel is not read.
	assert.Equal(t, []entity.SessionStatus{entity.SessionPresent, entity.SessionAbsent, entity.SessionPresent}, snap.Sessions)
	assert.Equal(t, [][]string{
		{"Subject", "Attended", "Percentage"},
		{"Mathematics", "18/20", "90"},
		{"Physics", "17/20", "85"},
	}, snap.Rows)
}

func TestParseTimetableOrder(t *testing.T) {
	snap, err := ParseTimetable(timetableFixture)
	require.NoError(t, err)

	require.Len(t, snap.Days, 3)
	assert.Equal(t, "Monday", snap.Days[0].Label)
	assert.Equal(t, "Tuesday", snap.Days[1].Label)
	assert.Equal(t, "Wednesday", snap.Days[2].Label)

	assert.Equal(t, [][]string{
		{"Time", "Subject", "Room"},
		{"09:00", "Mathematics", "A101"},
		{"10:00", "Physics", "B202"},
	}, snap.Days[0].Rows)
	assert.Equal(t, [][]string{{"09:00", "Chemistry", "C303"}}, snap.Days[1].Rows)
	assert.Empty(t, snap.Days[2].Rows)
	assert.NotNil(t, snap.Days[2].Rows)
}

func TestParseTimetableWithoutPanels(t *testing.T) {
	snap, err := ParseTimetable(`<html><body><div class="ant-page-header-heading-title">Time Table</div></body></html>`)

	require.ErrorIs(t, err, ErrStructuralChange)
	assert.Equal(t, entity.EmptyTimetable(), snap)
	assert.NotNil(t, snap.Days)
}

func TestParseIsIdempotent(t *testing.T) {
	a1, err := ParseAttendance(attendanceFixture, defaultColours)
	require.NoError(t, err)
	a2, err := ParseAttendance(attendanceFixture, defaultColours)
	require.NoError(t, err)
	assert.Equal(t, a1, a2)

	t1, err := ParseTimetable(timetableFixture)
	require.NoError(t, err)
	t2, err := ParseTimetable(timetableFixture)
	require.NoError(t, err)
	assert.Equal(t, t1, t2)
}

func TestErrorType(t *testing.T) {
	assert.Equal(t, "", errorType(nil))
	assert.Equal(t, "auth", errorType(fmt.Errorf("%w: %w", ErrAuth, ErrStructuralChange)))
	assert.Equal(t, "navigation", errorType(fmt.Errorf("wrap: %w", ErrNavigation)))
	assert.Equal(t, "structural_change", errorType(ErrStructuralChange))
	assert.Equal(t, "transient_render", errorType(ErrTransientRender))
	assert.Equal(t, "unknown", errorType(fmt.Errorf("boom")))
}

func ptr(f float64) *float64 { return &f }
