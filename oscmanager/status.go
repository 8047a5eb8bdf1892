package oscmanager

// Severity of a status update.
type Severity int

const (
	Info Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "info"
}

// StatusReporter receives user-facing status updates: bind results, fatal
// receive errors and action failures. It may be called from any goroutine
// and must not call Start or Stop before returning.
type StatusReporter interface {
	OnStatus(message string, severity Severity)
}

type discardStatus struct{}

func (discardStatus) OnStatus(string, Severity) {}
