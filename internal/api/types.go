package api

// ErrorResponse is returned on errors. Details maps a field or query
// parameter to what is wrong with it.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthResponse is returned by the /health endpoints.
type HealthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Reason        string `json:"reason,omitempty"`
}
