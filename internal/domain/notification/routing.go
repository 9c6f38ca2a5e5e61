package notification

import (
	"strings"

	"github.com/Strob0t/buildnotify/internal/domain/build"
)

// Routing is the per-channel target configuration. A target is an opaque
// channel-specific string and may hold several comma-separated recipients.
type Routing struct {
	Global        string `yaml:"global" json:"global"`
	Successful    string `yaml:"successful" json:"successful,omitempty"`
	Broken        string `yaml:"broken" json:"broken,omitempty"`
	StillBroken   string `yaml:"still_broken" json:"still_broken,omitempty"`
	Fixed         string `yaml:"fixed" json:"fixed,omitempty"`
	SendIfSuccess bool   `yaml:"send_if_success" json:"send_if_success"`
	ExtraMessage  string `yaml:"extra_message" json:"extra_message,omitempty"`
}

// Override returns the per-status target for s, which may be blank.
func (r Routing) Override(s build.Status) string {
	switch s {
	case build.StatusSuccessful:
		return r.Successful
	case build.StatusBroken:
		return r.Broken
	case build.StatusStillBroken:
		return r.StillBroken
	case build.StatusFixed:
		return r.Fixed
	default:
		return ""
	}
}

// Resolve picks the target for s. A non-blank per-status override always
// wins. Otherwise the global target is used unless the build is a plain
// success and SendIfSuccess is off. ok is false when nothing should be sent.
func (r Routing) Resolve(s build.Status) (target string, ok bool) {
	if v := strings.TrimSpace(r.Override(s)); v != "" {
		return v, true
	}
	if s == build.StatusSuccessful && !r.SendIfSuccess {
		return "", false
	}
	if v := strings.TrimSpace(r.Global); v != "" {
		return v, true
	}
	return "", false
}
