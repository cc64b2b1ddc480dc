package api

// HealthResponse is the body served by GET /health.
type HealthResponse struct {
	Status string `json:"status" example:"healthy"`
}

// ReadinessResponse is the body served by GET /readiness when the
// registry's storage is reachable.
type ReadinessResponse struct {
	Status string `json:"status" example:"ready"`
}

// VersionResponse is the body served by GET /version.
type VersionResponse struct {
	Version   string `json:"version" example:"v0.2.0"`
	Commit    string `json:"commit" example:"abc123def"`
	BuildDate string `json:"build_date" example:"2025-01-15T10:30:00Z"`
	GoVersion string `json:"go_version" example:"go1.25.2"`
	Platform  string `json:"platform" example:"linux/amd64"`
}
