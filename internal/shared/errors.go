package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrAuthDeclined     = fmt.Errorf("authorization declined")

	// API and service errors
	ErrAPIRequest = fmt.Errorf("API request failed")

	// Session errors
	ErrSessionNotFound = fmt.Errorf("session not found")

	// Input validation errors
	ErrInvalidInput = fmt.Errorf("invalid input")
)
