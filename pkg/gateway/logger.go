package gateway

import "time"

// Logger defines the logging surface the gateway relies on.
type Logger interface {
	WarnObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
}

// Observer receives one notification per gateway call. kind is zero on success.
type Observer interface {
	ObserveRequest(endpoint string, status int, kind Kind, elapsed time.Duration)
}

type noopLogger struct{}

func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}

type noopObserver struct{}

func (noopObserver) ObserveRequest(string, int, Kind, time.Duration) {}
