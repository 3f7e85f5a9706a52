package journey

import (
	"errors"
	"fmt"

	synerrors "github.com/odvcencio/synthetics/pkg/errors"
)

// ErrorInfo is the serializable form of an error written into records.
type ErrorInfo struct {
	Message string `json:"message"`
	Name    string `json:"name"`
	Stack   string `json:"stack"`
}

// FormatError normalizes err into its serializable form. Coded errors are
// named by their code and carry their captured stack; any other error is
// named by its dynamic type and carries an empty stack. Returns nil for a
// nil error.
func FormatError(err error) *ErrorInfo {
	if err == nil {
		return nil
	}

	info := &ErrorInfo{Message: err.Error()}

	var coded *synerrors.Error
	if errors.As(err, &coded) {
		info.Name = string(coded.Code)
		info.Stack = coded.StackTrace()
		return info
	}

	info.Name = fmt.Sprintf("%T", err)
	return info
}
