package types

// FailureListener receives the recoverable failures of the experiment cache.
// Notifications are delivered synchronously, exactly once per failing
// attempt, before the triggering operation returns. Implementations must
// not call back into the cache that notified them.
type FailureListener interface {
	// OnWriteFailed reports that the active experiment could not be
	// written. The experiment stays dirty so a later write can retry.
	OnWriteFailed(experiment *Experiment)

	// OnReadFailed reports that the experiment could not be read or decoded.
	OnReadFailed(overview ExperimentOverview)

	// OnNewerVersionDetected reports that the stored experiment was written
	// by a newer major version than this code supports.
	OnNewerVersionDetected(overview ExperimentOverview)
}

// FailureListenerFuncs adapts plain functions to FailureListener. Nil
// fields ignore the notification.
type FailureListenerFuncs struct {
	WriteFailed          func(experiment *Experiment)
	ReadFailed           func(overview ExperimentOverview)
	NewerVersionDetected func(overview ExperimentOverview)
}

func (f FailureListenerFuncs) OnWriteFailed(experiment *Experiment) {
	if f.WriteFailed != nil {
		f.WriteFailed(experiment)
	}
}

func (f FailureListenerFuncs) OnReadFailed(overview ExperimentOverview) {
	if f.ReadFailed != nil {
		f.ReadFailed(overview)
	}
}

func (f FailureListenerFuncs) OnNewerVersionDetected(overview ExperimentOverview) {
	if f.NewerVersionDetected != nil {
		f.NewerVersionDetected(overview)
	}
}
