package providers

import (
	"fmt"

	"github.com/ibeckermayer/postcycle/internal/types"
)

// maxResponseBytes caps LLM response bodies
const maxResponseBytes = 1 << 20

// parseError builds an error for an unexpected response shape
func parseError(format string, args ...any) error {
	return types.Tag(types.ErrParse, fmt.Errorf(format, args...))
}
