package narrator

import (
	"fmt"
	"strings"
)

// parseResponse cleans model output down to plain prose.
func parseResponse(response string) (string, error) {
	// Clean up response - remove markdown code blocks if present
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```text")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)
	response = strings.Trim(response, `"`)

	lines := strings.Fields(response)
	if len(lines) == 0 {
		return "", fmt.Errorf("narrator returned no text")
	}
	return strings.Join(lines, " "), nil
}
