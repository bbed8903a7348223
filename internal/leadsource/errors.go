package leadsource

import "fmt"

// ConfigurationError is returned before any network call when the search
// provider is not configured.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("leadsource: %s is not configured", e.Setting)
}

// SearchError is returned when the provider answers with a non-2xx status.
// It is not retried.
type SearchError struct {
	StatusCode int
	Body       string
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("leadsource: search failed with status %d: %s", e.StatusCode, e.Body)
}
