package freshness

import "fmt"

// InternalInconsistencyError reports a precondition violation inside an
// evaluation pass, as opposed to an ordinary verdict about the document.
type InternalInconsistencyError struct {
	msg string
}

func NewInternalInconsistencyError(format string, args ...any) InternalInconsistencyError {
	return InternalInconsistencyError{msg: fmt.Sprintf(format, args...)}
}

func (iie InternalInconsistencyError) Error() string {
	return iie.msg
}
