package session

type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseConnecting    Phase = "connecting"
	PhaseRetrying      Phase = "retrying"
	PhaseSessionCheck  Phase = "session-check"
	PhaseIPValidating  Phase = "ip-validating"
	PhaseReady         Phase = "ready"
	PhaseFailed        Phase = "failed"
)

// Terminal reports whether startup has resolved.
func (p Phase) Terminal() bool { return p == PhaseReady || p == PhaseFailed }
