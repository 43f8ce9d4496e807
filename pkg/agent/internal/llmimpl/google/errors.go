package google

import (
	"errors"

	"google.golang.org/genai"
)

// asAPIError unwraps genai.APIError, which the SDK returns by value.
func asAPIError(err error, target *genai.APIError) bool {
	if errors.As(err, target) {
		return true
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		*target = *ptr
		return true
	}
	return false
}
