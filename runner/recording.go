package runner

import "github.com/hupe1980/salesmesh/core"

// recordingListener decorates an ActivityListener, capturing function
// call/result pairs so a successful turn can commit them alongside the
// answer. It relies on the listener contract's single-goroutine FIFO
// delivery, so no locking is needed.
type recordingListener struct {
	core.ActivityListener
	pending map[string]int
	records []core.FunctionRecord
}

func newRecordingListener(inner core.ActivityListener) *recordingListener {
	return &recordingListener{ActivityListener: inner, pending: make(map[string]int)}
}

func (l *recordingListener) OnFunctionCall(functionName, callID string, args map[string]any) {
	l.pending[callID] = len(l.records)
	l.records = append(l.records, core.FunctionRecord{Name: functionName, Arguments: args})
	l.ActivityListener.OnFunctionCall(functionName, callID, args)
}

func (l *recordingListener) OnFunctionResult(functionName, callID, result string) {
	if idx, ok := l.pending[callID]; ok {
		l.records[idx].Result = result
		delete(l.pending, callID)
	}
	l.ActivityListener.OnFunctionResult(functionName, callID, result)
}

// Records returns the captured function invocations in call order.
func (l *recordingListener) Records() []core.FunctionRecord { return l.records }
