package template

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// generateSerial produces a prefix + 8 hex digit serial number, matching the
// "random" branch of spec.md §4.1 step 3. When randomSerialNumber is false
// the prefix alone is returned unchanged, reproducing the deterministic
// naming convention a fixed fleet of simulated stations wants across
// restarts.
func generateSerial(prefix string, random bool) (string, error) {
	if !random || prefix == "" {
		return prefix, nil
	}
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("template: generate serial: %w", err)
	}
	return prefix + strings.ToUpper(hex.EncodeToString(buf)), nil
}
