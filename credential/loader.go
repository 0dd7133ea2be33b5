package credential

import (
	"fmt"
	"os"
	"strings"
)

// LoadKeys reads a newline-delimited credential file. Blank lines and lines
// starting with '#' are skipped. At least one key is required.
func LoadKeys(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credential file: %w", err)
	}

	var keys []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keys = append(keys, line)
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("credential file %s contains no keys", path)
	}
	return keys, nil
}
