package orchestrator

import (
	"fmt"
	"regexp"
	"strings"
)

var sudoMarker = regexp.MustCompile(`(?i)(^|\s)sudo(\s|$)`)

// needsElevation reports whether the command carries an elevation marker.
func needsElevation(command string) bool {
	return sudoMarker.MatchString(command)
}

// RewriteElevated substitutes the configured privilege-escalation front-end
// for a plain sudo once the user has approved the request. Front-ends come
// in two invocation shapes: argument-prepend (pkexec, doas, sudo itself) and
// wrapped -c string (su).
func RewriteElevated(command, tool string) string {
	stripped := stripSudo(command)
	switch tool {
	case "", "sudo":
		return "sudo " + stripped
	case "su":
		return fmt.Sprintf("su -c %q", stripped)
	default:
		return tool + " " + stripped
	}
}

func stripSudo(command string) string {
	trimmed := strings.TrimSpace(command)
	for {
		rest, ok := strings.CutPrefix(trimmed, "sudo ")
		if !ok {
			return trimmed
		}
		trimmed = strings.TrimSpace(rest)
	}
}
