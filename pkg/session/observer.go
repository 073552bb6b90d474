package session

// Logger receives debug traces. Secret values are never passed to it.
// *logging.Logger from this module satisfies it.
type Logger interface {
	Debug(format string, args ...interface{})
}

// Recorder receives counters about session activity.
type Recorder interface {
	// RecordAuth is called after every credential exchange.
	RecordAuth(backend Backend, err error)
	// RecordOperation is called after every read or write attempt, retried or not.
	RecordOperation(op string, err error)
	// RecordRetry is called when an operation is retried after a fresh login.
	RecordRetry(op string)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}

type nopRecorder struct{}

func (nopRecorder) RecordAuth(Backend, error)      {}
func (nopRecorder) RecordOperation(string, error) {}
func (nopRecorder) RecordRetry(string)            {}
