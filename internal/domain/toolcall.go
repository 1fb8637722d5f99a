package domain

// ToolName enumerates the closed set of tools the model may request.
type ToolName string

const (
	ToolShell  ToolName = "shell"
	ToolSearch ToolName = "search"
)

// ShellCall asks for a shell command to be executed.
type ShellCall struct {
	Command     string
	Explanation string
}

// SearchCall asks for a web search.
type SearchCall struct {
	Query string
}

// ToolCall is a tagged union of the supported tool requests. Exactly one of
// Shell or Search is non-nil, matching Tool.
type ToolCall struct {
	Tool   ToolName
	Shell  *ShellCall
	Search *SearchCall
}

// ParsedReply is the outcome of interpreting an assistant message. When the
// message is not a well-formed tool call, IsToolCall is false and RawText
// carries the original content untouched.
type ParsedReply struct {
	IsToolCall bool
	Call       *ToolCall
	RawText    string
}
