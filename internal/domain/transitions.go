package domain

import "fmt"

// TransitionPolicy decides whether a submission may move from one status to another.
type TransitionPolicy interface {
	Name() string
	Allows(from, to SubmissionStatus) bool
}

// Transition policy names accepted in configuration.
const (
	TransitionsOpen        = "open"
	TransitionsForwardOnly = "forward_only"
)

// NewTransitionPolicy returns the policy registered under name.
func NewTransitionPolicy(name string) (TransitionPolicy, error) {
	switch name {
	case "", TransitionsOpen:
		return OpenTransitions{}, nil
	case TransitionsForwardOnly:
		return ForwardOnlyTransitions{}, nil
	}
	return nil, fmt.Errorf("unknown transition policy %q", name)
}

// OpenTransitions allows any valid status to follow any other.
type OpenTransitions struct{}

func (OpenTransitions) Name() string { return TransitionsOpen }

func (OpenTransitions) Allows(_, _ SubmissionStatus) bool { return true }

// ForwardOnlyTransitions never moves an application backwards in the pipeline.
// The four closing statuses are terminal; any open status may close.
type ForwardOnlyTransitions struct{}

func (ForwardOnlyTransitions) Name() string { return TransitionsForwardOnly }

func (ForwardOnlyTransitions) Allows(from, to SubmissionStatus) bool {
	if from == to {
		return true
	}
	if IsClosingStatus(from) {
		return false
	}
	if IsClosingStatus(to) {
		return true
	}
	return rank(to) > rank(from)
}

// IsClosingStatus reports whether s ends an application.
func IsClosingStatus(s SubmissionStatus) bool {
	switch s {
	case StatusNotSelected, StatusNoResponse, StatusPositionClosed, StatusApplicationWithdrawn:
		return true
	}
	return false
}

func rank(s SubmissionStatus) int {
	for i, st := range submissionStatuses {
		if st == s {
			return i
		}
	}
	return -1
}
