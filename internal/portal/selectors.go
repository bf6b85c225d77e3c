package portal

// Paths and selectors of the student portal. Any change on the portal side
// breaks these, so they live together.
const (
	attendancePath = "/student/attendance"
	timetablePath  = "/student/time-table"

	loginMobileSelector   = "#login_mobilenumber"
	loginPasswordSelector = "#login_password"
	loginSubmitSelector   = `button[type="submit"]`

	pageReadySelector = ".ant-page-header-heading-title"

	overallHeaderXPath      = `//div[contains(@class, "ant-collapse-header") and .//h4[text()="Overall"]]`
	activePanelSelector     = "div.ant-collapse-content-active"
	progressBarSelector     = ".ant-progress-bg"
	sessionIndicatorSel     = "div.ant-collapse-content-active span > svg"
	activePanelRowsSelector = "div.ant-collapse-content-active table tr"

	panelHeaderSelector = "div.ant-collapse-header"
	panelItemSelector   = "div.ant-collapse-item"
	panelRowsSelector   = "div.ant-collapse-content-box table tr"
	cellSelector        = "td, th"
)

// Screenshot names written when a stage gives up.
const (
	shotLogin      = "error_login_page.png"
	shotAttendance = "error_attendance_page.png"
	shotTimetable  = "error_timetable_page.png"
	shotFinal      = "error_final.png"
)
