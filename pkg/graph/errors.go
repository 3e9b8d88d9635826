package graph

import "fmt"

// TransportError is returned when a Graph API request fails or answers with an unexpected status
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s", e.Op, e.URL, e.Err.Error())
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Op, e.URL, e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
