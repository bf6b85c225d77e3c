package request

type UpdateDashboardRequest struct {
	MobileNumber string `json:"mobile_number"`
}

type ChatRequest struct {
	Query  string `json:"query"`
	UserID string `json:"userId"`
}

type RateRequest struct {
	MessageID string `json:"messageId"`
	Rating    int    `json:"rating"`
	UserID    string `json:"userId"`
}
