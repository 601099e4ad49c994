package worker

// State represents the lifecycle state of a worker
type State string

const (
	// StateParsed represents a worker that has not started installing
	StateParsed State = "parsed"
	// StateInstalling represents a worker populating its caches
	StateInstalling State = "installing"
	// StateInstalled represents a worker waiting to activate
	StateInstalled State = "installed"
	// StateActivating represents a worker cleaning up old cache generations
	StateActivating State = "activating"
	// StateActivated represents a worker that may control clients
	StateActivated State = "activated"
	// StateRedundant represents a worker that failed to install or was replaced
	StateRedundant State = "redundant"
)
