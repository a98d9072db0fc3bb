package config

import (
	"fmt"
	"strings"

	"github.com/pulsegate/sseconn/pkg/sseclient"
)

// ParseHeaders converts repeated --header flag values of the form
// "Key: Value" into ordered request headers. Duplicate keys are preserved.
func ParseHeaders(raw []string) ([]sseclient.Header, error) {
	headers := make([]sseclient.Header, 0, len(raw))
	for _, entry := range raw {
		key, value, ok := strings.Cut(entry, ":")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid header %q, expected \"Key: Value\"", entry)
		}
		headers = append(headers, sseclient.Header{
			Key:   strings.TrimSpace(key),
			Value: strings.TrimSpace(value),
		})
	}
	return headers, nil
}
