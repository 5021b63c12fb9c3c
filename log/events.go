package log

// Log events.
const (
	EventCycleFinished  = "cycle_finished"
	EventCycleStarted   = "cycle_started"
	EventInput          = "input"
	EventLinkError      = "link_error"
	EventOutputError    = "output_error"
	EventPanic          = "panic"
	EventPhaseDone      = "phase_done"
	EventSecond         = "second"
	EventStatus         = "status"
	EventSVCStarted     = "svc_started"
	EventSVCShutdown    = "svc_shutdown"
	EventTransition     = "transition"
	EventMetricsStarted = "metrics_started"
	EventPublishFailed  = "publish_failed"
)
