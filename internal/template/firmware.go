package template

import (
	"fmt"
	"regexp"
	"strconv"
)

// BumpFirmwareVersion applies a firmwareUpgrade step to version, incrementing
// the numeric capture group patternGroup of pattern by step (spec.md §4.1
// step 6, the simulated firmware-update side effect). A version that does
// not match pattern is returned unchanged — firmware updates on stations
// whose version string the reconciler cannot parse are a no-op rather than
// an error, since the pattern is operator-supplied and best-effort. Called by
// the station runtime when a FirmwareStatusNotification transitions through
// Installing.
func BumpFirmwareVersion(version, pattern string, upgrade FirmwareUpgrade) (string, error) {
	if pattern == "" {
		return version, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("template: compile firmwareVersionPattern %q: %w", pattern, err)
	}
	loc := re.FindStringSubmatchIndex(version)
	if loc == nil {
		return version, nil
	}
	group := upgrade.VersionUpgrade.PatternGroup
	if group <= 0 || group*2+1 >= len(loc) {
		return version, nil
	}
	start, end := loc[group*2], loc[group*2+1]
	if start < 0 || end < 0 {
		return version, nil
	}
	current, err := strconv.Atoi(version[start:end])
	if err != nil {
		return version, nil
	}
	next := current + upgrade.VersionUpgrade.Step
	return version[:start] + strconv.Itoa(next) + version[end:], nil
}

// validateFirmwareVersion reports whether version conforms to pattern. An
// empty pattern accepts any version.
func validateFirmwareVersion(version, pattern string) bool {
	if pattern == "" {
		return true
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(version)
}
