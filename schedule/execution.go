package schedule

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Execution is an immutable record that a schedule ran once, including the
// report payload the automation engine produced.
//
// run_at is supplied by the caller and reflects when the engine executed;
// created_at is assigned by this service at ingestion time. Retrieval is
// ordered by run_at descending.
type Execution struct {
	ExecutionID string `json:"execution_id"`
	ScheduleID  string `json:"schedule_id"`
	Industry    string `json:"industry"`
	SubNiche    string `json:"sub_niche"`
	Frequency   string `json:"frequency"`
	RunAt       string `json:"run_at"`       // RFC3339, caller-supplied
	IsFirstRun  bool   `json:"is_first_run"` // as asserted by the caller
	FinalReport string `json:"final_report"` // opaque HTML blob
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"` // RFC3339, server-assigned
}

// Execution status constants. Only "success" is written today; the failed
// state exists for the engine's error-reporting path.
const (
	ExecutionStatusSuccess = "success"
	ExecutionStatusFailed  = "failed"
)

const executionIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewExecutionID generates an opaque execution id combining the current
// timestamp with a random suffix: exec_<unixms>_<9 random chars>.
func NewExecutionID() string {
	suffix := make([]byte, 9)
	max := big.NewInt(int64(len(executionIDAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken;
			// fall back to a timestamp-derived character
			suffix[i] = executionIDAlphabet[time.Now().Nanosecond()%len(executionIDAlphabet)]
			continue
		}
		suffix[i] = executionIDAlphabet[n.Int64()]
	}
	return fmt.Sprintf("exec_%d_%s", time.Now().UnixMilli(), suffix)
}
