package domain

// Intent is the coarse pre-classification of user input, decided before any
// model call. It routes the turn; it is not the security boundary.
type Intent string

const (
	IntentDanger       Intent = "danger"
	IntentShell        Intent = "shell"
	IntentSearch       Intent = "search"
	IntentConversation Intent = "conversation"
)
