package metrics

import "time"

// Recorder knows how to measure the different kind of metrics of the
// sweep runners.
type Recorder interface {
	// WithID will set the ID name to the recorder and every metric
	// measured with the obtained recorder will be identified with
	// the name.
	WithID(id string) Recorder
	// ObserveCommandExecution will measure the execution of the runner chain.
	ObserveCommandExecution(start time.Time, success bool)
	// IncRetry will increment the number of retries.
	IncRetry()
	// IncRetryExhausted increments the number of calls that consumed every retry.
	IncRetryExhausted()
	// IncRateLimited increments the number of rate limited responses received.
	IncRateLimited()
	// IncTimeout will increment the number of timeouts.
	IncTimeout()
	// IncGateQueued increments the number of Funcs that asked for a gate slot.
	IncGateQueued()
	// SetGateInflight sets the number of executions currently past the gate.
	SetGateInflight(n int)
	// IncPaceWait increments the number of executions delayed by the pacer.
	IncPaceWait()
	// IncSubmissionProcessed increments the number of submissions fetched.
	IncSubmissionProcessed()
	// IncSubmissionReported increments the number of rows written per report sheet.
	IncSubmissionReported(sheet string)
}
