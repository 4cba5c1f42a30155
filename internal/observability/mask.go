package observability

import "regexp"

var (
	rePassword = regexp.MustCompile(`(?i)(password=)([^\s;&]+)`)
	reToken    = regexp.MustCompile(`(?i)(token=|bearer\s+)([A-Za-z0-9._-]+)`)
	reDSNPass  = regexp.MustCompile(`(?i)(://)([^:/@\s]+):([^@\s]+)(@)`)
	reSlack    = regexp.MustCompile(`\bxox[abprs]-[A-Za-z0-9-]+|\bxapp-[A-Za-z0-9-]+`)
)

// Mask hides credentials in DSNs, URLs and header-like strings before they
// reach a log line.
func Mask(s string) string {
	out := rePassword.ReplaceAllString(s, "$1***")
	out = reToken.ReplaceAllString(out, "$1***")
	out = reDSNPass.ReplaceAllString(out, "$1$2:***$4")
	out = reSlack.ReplaceAllString(out, "xox***")
	return out
}
