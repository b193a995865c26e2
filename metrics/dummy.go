package metrics

import "time"

// Dummy is a no-op recorder, safe to use when measuring is not wanted.
var Dummy Recorder = dummy{}

type dummy struct{}

func (dummy) WithID(id string) Recorder { return Dummy }

func (dummy) ObserveCommandExecution(start time.Time, success bool) {}

func (dummy) IncRetry() {}

func (dummy) IncRetryExhausted() {}

func (dummy) IncRateLimited() {}

func (dummy) IncTimeout() {}

func (dummy) IncGateQueued() {}

func (dummy) SetGateInflight(n int) {}

func (dummy) IncPaceWait() {}

func (dummy) IncSubmissionProcessed() {}

func (dummy) IncSubmissionReported(sheet string) {}
