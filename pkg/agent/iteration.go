package agent

// maxConsecutiveTimeouts is the threshold for aborting the loop. After this
// many consecutive timed-out interactions the turn fails rather than burning
// the remaining iterations.
const maxConsecutiveTimeouts = 2

// iterationState tracks loop state across iterations of one turn.
type iterationState struct {
	currentIteration           int
	lastInteractionFailed      bool
	lastErrorMessage           string
	consecutiveTimeoutFailures int
}

func (s *iterationState) shouldAbortOnTimeouts() bool {
	return s.consecutiveTimeoutFailures >= maxConsecutiveTimeouts
}

func (s *iterationState) recordSuccess() {
	s.lastInteractionFailed = false
	s.lastErrorMessage = ""
	s.consecutiveTimeoutFailures = 0
}

func (s *iterationState) recordFailure(errMsg string, isTimeout bool) {
	s.lastInteractionFailed = true
	s.lastErrorMessage = errMsg
	if isTimeout {
		s.consecutiveTimeoutFailures++
	} else {
		s.consecutiveTimeoutFailures = 0
	}
}
