package stats

// Outcome classifies a single operation attempt.
type Outcome int

const (
	Success Outcome = iota
	HTTPError
	NetworkTimeout
	ValidationRejected
	EmptyResponse
	Exception
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case HTTPError:
		return "http_error"
	case NetworkTimeout:
		return "network_timeout"
	case ValidationRejected:
		return "validation_rejected"
	case EmptyResponse:
		return "empty_response"
	default:
		return "exception"
	}
}
