package api

import "time"

const taskBodyMaxSize = 64 * 1024 // 64 KiB

const (
	msgInvalidBody  = "invalid body"
	msgInvalidLimit = "invalid limit"
	msgRateLimited  = "Rate limit exceeded. Please try again later."
)

type errorResponse struct {
	Error string `json:"error"`
}

// 429 body
type rateLimitResponse struct {
	Error      string `json:"error"`
	RetryAfter string `json:"retryAfter"`
}

// GET /health response body
type healthResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Version     string `json:"version"`
	Environment string `json:"environment,omitempty"`
	Region      string `json:"region,omitempty"`
	Hostname    string `json:"hostname,omitempty"`
	Error       string `json:"error,omitempty"`
}

// GET / response body
type infoResponse struct {
	API       string            `json:"api"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// ServiceInfo is reported by the root and health endpoints.
// PingTimeout bounds the backend check behind /health; zero means no bound.
type ServiceInfo struct {
	Version     string
	Environment string
	Region      string
	Hostname    string
	PingTimeout time.Duration
}
