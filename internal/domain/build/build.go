// Package build defines the finished-build record and the result vocabulary
// reported by the CI server.
package build

import (
	"fmt"
	"strings"
)

// Result is the outcome the CI server reports for a finished build.
type Result string

const (
	ResultSuccess  Result = "SUCCESS"
	ResultUnstable Result = "UNSTABLE"
	ResultFailure  Result = "FAILURE"
	ResultAborted  Result = "ABORTED"
	ResultNotBuilt Result = "NOT_BUILT"
)

// Results lists every known result in ascending severity.
var Results = []Result{ResultSuccess, ResultUnstable, ResultFailure, ResultAborted, ResultNotBuilt}

// Valid reports whether r is one of the known results.
func (r Result) Valid() bool {
	return r.Severity() >= 0
}

// Severity orders results from best (0) to worst. Unknown results return -1.
func (r Result) Severity() int {
	for i, known := range Results {
		if r == known {
			return i
		}
	}
	return -1
}

// IsSuccess reports whether r is SUCCESS.
func (r Result) IsSuccess() bool { return r == ResultSuccess }

// ParseResult converts a case-insensitive result name into a Result.
// An empty string parses to the empty Result, meaning "no result".
func ParseResult(s string) (Result, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	r := Result(strings.ReplaceAll(s, "-", "_"))
	if !r.Valid() {
		return "", fmt.Errorf("unknown build result %q", s)
	}
	return r, nil
}

// Change is one source change that went into a build.
type Change struct {
	Message string `json:"message"`
	Author  string `json:"author"`
}

// Record is a finished build as seen by the notifier.
// Previous is a read-only link to the build that ran immediately before,
// nil for the first build of a project.
type Record struct {
	Number   int               `json:"number"`
	Result   Result            `json:"result"`
	Project  string            `json:"project"`
	URL      string            `json:"url"` // relative to the CI server base URL
	Changes  []Change          `json:"changes,omitempty"`
	Env      map[string]string `json:"env,omitempty"`
	Previous *Record           `json:"-"`
}

// PreviousResult returns the result of the preceding build, or the empty
// Result when there is none.
func (r *Record) PreviousResult() Result {
	if r.Previous == nil {
		return ""
	}
	return r.Previous.Result
}
