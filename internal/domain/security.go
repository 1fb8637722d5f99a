package domain

// SecurityVerdict is the result of validating one command against the
// security rules. Verdicts are recomputed for every execution, never cached.
type SecurityVerdict struct {
	Allowed bool
	Reason  string
}

// Allow is the verdict for a command matching no rule.
func Allow() SecurityVerdict {
	return SecurityVerdict{Allowed: true}
}

// Deny builds a rejection verdict carrying the first violated rule.
func Deny(reason string) SecurityVerdict {
	return SecurityVerdict{Allowed: false, Reason: reason}
}
