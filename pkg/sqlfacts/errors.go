package sqlfacts

// Stage names the extraction step that produced a ParseError.
type Stage string

// Extraction stages.
const (
	StageStructural Stage = "structural"
	StageFallback   Stage = "fallback"
	StageRead       Stage = "read"
)

// ParseError is a non-fatal diagnostic. Its Error() text is what callers see
// in ParseResult.ParseErrors.
type ParseError struct {
	Stage   Stage
	Message string
}

func (e *ParseError) Error() string {
	return string(e.Stage) + ": " + e.Message
}

func structuralError(msg string) *ParseError {
	return &ParseError{Stage: StageStructural, Message: msg}
}

func fallbackError(msg string) *ParseError {
	return &ParseError{Stage: StageFallback, Message: msg}
}
