package notification

import (
	"github.com/mfridman/interpolate"
)

// buildEnv adapts a build environment map to interpolate.Env.
type buildEnv map[string]string

func (e buildEnv) Get(key string) (string, bool) {
	v, ok := e[key]
	return v, ok
}

// ExpandExtra substitutes $VAR, ${VAR} and ${VAR:-default} references in
// template with values from env. Malformed templates are returned as is.
func ExpandExtra(template string, env map[string]string) string {
	if template == "" {
		return ""
	}
	out, err := interpolate.Interpolate(buildEnv(env), template)
	if err != nil {
		return template
	}
	return out
}
