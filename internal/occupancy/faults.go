package occupancy

import (
	"errors"
	"fmt"
)

// ErrValidation marks a request rejected before any write was attempted.
var ErrValidation = errors.New("validation failed")

// FaultStage names which half of a transition left the partial state behind.
type FaultStage string

const (
	StageEntry FaultStage = "entry"
	StageExit  FaultStage = "exit"
)

// PartialFault reports a transition whose first write committed and whose
// second write failed. The two entities are now inconsistent: after a
// partial entry the facility shows occupied with no open record; after a
// partial exit the record is closed but the facility still shows occupied.
// The protocol never retries or compensates; the fault is surfaced for
// out-of-band reconciliation via the audit queries.
type PartialFault struct {
	Stage      FaultStage
	FacilityID string
	RecordID   string // set for exit faults: the record that was closed
	Err        error
}

func (f *PartialFault) Error() string {
	return fmt.Sprintf("partial %s on facility %s: %v", f.Stage, f.FacilityID, f.Err)
}

func (f *PartialFault) Unwrap() error {
	return f.Err
}
