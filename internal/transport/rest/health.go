package rest

import "net/http"

// HealthCheck is a simple health check endpoint.
func HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
