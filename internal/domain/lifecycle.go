package domain

// LifecycleEvent drives a document from one status to the next.
type LifecycleEvent string

const (
	EventStart         LifecycleEvent = "start"
	EventComplete      LifecycleEvent = "complete"
	EventRequireReview LifecycleEvent = "require_review"
	EventFail          LifecycleEvent = "fail"
	EventReprocess     LifecycleEvent = "reprocess"
)

// transitions is the complete state machine: current status x event -> next status.
// Anything not listed is illegal.
var transitions = map[DocumentStatus]map[LifecycleEvent]DocumentStatus{
	StatusPending: {
		EventStart: StatusProcessing,
	},
	StatusProcessing: {
		EventComplete:      StatusProcessed,
		EventRequireReview: StatusNeedsReview,
		EventFail:          StatusFailed,
	},
	StatusProcessed: {
		EventReprocess: StatusPending,
	},
	StatusNeedsReview: {
		EventReprocess: StatusPending,
	},
	StatusFailed: {
		EventReprocess: StatusPending,
	},
}

// NextStatus returns the status reached by applying ev in from.
func NextStatus(from DocumentStatus, ev LifecycleEvent) (DocumentStatus, error) {
	if next, ok := transitions[from][ev]; ok {
		return next, nil
	}
	return "", &TransitionError{From: from, Event: ev}
}

// SourceStatuses lists every status from which ev is legal, in a stable order.
func SourceStatuses(ev LifecycleEvent) []DocumentStatus {
	order := []DocumentStatus{StatusPending, StatusProcessing, StatusProcessed, StatusNeedsReview, StatusFailed}
	var out []DocumentStatus
	for _, s := range order {
		if _, ok := transitions[s][ev]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Apply moves the document through ev, keeping RequiresReview in step with the status.
func (d *Document) Apply(ev LifecycleEvent) error {
	next, err := NextStatus(d.Status, ev)
	if err != nil {
		return err
	}
	d.Status = next
	d.RequiresReview = next == StatusNeedsReview
	if ev == EventReprocess {
		d.ProcessingError = nil
	}
	return nil
}
