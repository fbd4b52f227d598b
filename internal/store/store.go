package store

// Store persists completed fit runs.
// Implementations must be safe for concurrent use.
//
// Load and Delete return a *NotFoundError (matching ErrNotFound) when the
// run does not exist; other failures are wrapped with context.
type Store interface {
	// SaveRun writes the run, replacing any run with the same ID.
	SaveRun(run *Run) error

	// LoadRun reads a run by ID.
	LoadRun(id string) (*Run, error)

	// ListRuns returns metadata for every readable run, in no particular order.
	ListRuns() ([]RunInfo, error)

	// DeleteRun removes a run and its trace.
	DeleteRun(id string) error
}

// ErrNotFound matches any missing run via errors.Is
var ErrNotFound = &NotFoundError{}

// NotFoundError reports a missing run
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return "run not found: " + e.ID
	}
	return "run not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
