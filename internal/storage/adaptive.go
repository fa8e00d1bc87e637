package storage

import "github.com/PranavKndpl/FluxDB/internal/index"

// adaptiveController tracks per-field miss counters and range flags for
// automatic index promotion. It has no locking of its own: the Engine's
// caller already holds the Collection's exclusive lock whenever
// ReportQueryMiss/recordMiss runs.
type adaptiveController struct {
	missCounter    map[string]int
	needsSorted    map[string]bool
}

func newAdaptiveController() *adaptiveController {
	return &adaptiveController{
		missCounter: make(map[string]int),
		needsSorted: make(map[string]bool),
	}
}

func (a *adaptiveController) reset() {
	a.missCounter = make(map[string]int)
	a.needsSorted = make(map[string]bool)
}

// recordMiss increments field's miss counter, tracking whether any miss
// since the last promotion was a range query. It returns the index kind
// to promote to and true once the dynamic threshold is reached; the
// counter and range flag are cleared on promotion.
func (a *adaptiveController) recordMiss(field string, isRange bool, dbSize int) (index.Kind, bool) {
	a.missCounter[field]++
	if isRange {
		a.needsSorted[field] = true
	}

	if a.missCounter[field] < dynamicThreshold(dbSize) {
		return index.Hash, false
	}

	kind := index.Hash
	if a.needsSorted[field] {
		kind = index.Sorted
	}
	a.missCounter[field] = 0
	a.needsSorted[field] = false
	return kind, true
}
