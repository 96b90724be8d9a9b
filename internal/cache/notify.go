package cache

import "github.com/mesh-intelligence/journal/pkg/types"

// notifications collects listener calls made while the cache mutex is held
// so they can be delivered after it is released.
type notifications []func(types.FailureListener)

func (n *notifications) writeFailed(exp *types.Experiment) {
	*n = append(*n, func(l types.FailureListener) { l.OnWriteFailed(exp) })
}

func (n *notifications) readFailed(overview types.ExperimentOverview) {
	*n = append(*n, func(l types.FailureListener) { l.OnReadFailed(overview) })
}

func (n *notifications) newerVersion(overview types.ExperimentOverview) {
	*n = append(*n, func(l types.FailureListener) { l.OnNewerVersionDetected(overview) })
}

func (n notifications) deliver(l types.FailureListener) {
	for _, fn := range n {
		fn(l)
	}
}
