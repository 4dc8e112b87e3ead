package errs

import "regexp"

var (
	pathPattern   = regexp.MustCompile(`(?:/[A-Za-z0-9_.\-]+){2,}`)
	stackPattern  = regexp.MustCompile(`(?m)^\s*at .*$`)
	secretPattern = regexp.MustCompile(`(?i)(token|secret|password|apikey|api_key|bearer)[=:]\s*\S+`)
)

// sanitizeMessage strips filesystem paths, stack-frame lines, and anything
// that looks like a key=value secret from an internal error message before
// it is allowed to reach a hook handler or an external caller.
func sanitizeMessage(msg string) string {
	msg = stackPattern.ReplaceAllString(msg, "")
	msg = secretPattern.ReplaceAllString(msg, "$1=[redacted]")
	msg = pathPattern.ReplaceAllString(msg, "[path]")
	return msg
}
