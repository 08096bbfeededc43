package metrics

import (
	"testing"
	"time"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	// The nil-guarded helpers must be safe to call from any goroutine after
	// (and before) Init.
	SnapshotProduced("ok")
	SnapshotProduced("error")
	StageFailed("extract")
	EmitFailed()
	WorkerStarted()
	WorkerFinished()
	ObserveStage("enrich", 120*time.Millisecond)
}
