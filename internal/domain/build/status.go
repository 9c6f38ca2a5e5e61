package build

// Status is the notification category derived from the current and
// previous build results.
type Status string

const (
	StatusBroken      Status = "BROKEN"
	StatusStillBroken Status = "STILL_BROKEN"
	StatusFixed       Status = "FIXED"
	StatusSuccessful  Status = "SUCCESSFUL"
)

// Statuses lists every status.
var Statuses = []Status{StatusBroken, StatusStillBroken, StatusFixed, StatusSuccessful}

// Classify maps the current result and the previous one to a Status.
// An empty previous result means there was no earlier build.
// Anything other than SUCCESS counts as a failure, UNSTABLE included.
func Classify(current, previous Result) Status {
	prevFailed := previous != "" && !previous.IsSuccess()
	if current.IsSuccess() {
		if prevFailed {
			return StatusFixed
		}
		return StatusSuccessful
	}
	if prevFailed {
		return StatusStillBroken
	}
	return StatusBroken
}

// StatusOf classifies a record against its previous build.
func StatusOf(r *Record) Status {
	return Classify(r.Result, r.PreviousResult())
}

// Label returns the built-in display label for s.
func (s Status) Label() string {
	switch s {
	case StatusBroken:
		return "Broken"
	case StatusStillBroken:
		return "Still Broken"
	case StatusFixed:
		return "Fixed"
	case StatusSuccessful:
		return "Successful"
	default:
		return string(s)
	}
}
