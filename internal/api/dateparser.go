package api

import (
	"strconv"

	dps "github.com/markusmobius/go-dateparser"
)

// ParseTimestamp parses a timestamp string, supporting both Unix timestamps
// and human-readable dates ("2 hours ago", "yesterday 14:00"). Returns Unix
// seconds. fieldName is used for error messages.
func ParseTimestamp(timestampStr, fieldName string) (int64, error) {
	if timestampStr == "" {
		return 0, NewValidationError("%s timestamp is required", fieldName)
	}

	if unixTimestamp, err := strconv.ParseInt(timestampStr, 10, 64); err == nil {
		if unixTimestamp < 0 {
			return 0, NewValidationError("%s timestamp must be non-negative", fieldName)
		}
		return unixTimestamp, nil
	}

	parser := dps.Parser{}
	cfg := &dps.Configuration{
		// CurrentPeriod makes bare month or weekday names resolve within the
		// current period, which matches how responders phrase time windows.
		PreferredDateSource: dps.CurrentPeriod,
	}

	parsedDate, err := parser.Parse(cfg, timestampStr)
	if err != nil {
		return 0, NewValidationError("%s must be a valid Unix timestamp or human-readable date: %v", fieldName, err)
	}

	if parsedDate.IsZero() {
		return 0, NewValidationError("%s could not be parsed as a valid date: %s", fieldName, timestampStr)
	}

	return parsedDate.Time.Unix(), nil
}

// ParseOptionalTimestamp parses an optional timestamp string. An empty string
// returns defaultVal; a present but invalid value is an error.
func ParseOptionalTimestamp(timestampStr, fieldName string, defaultVal int64) (int64, error) {
	if timestampStr == "" {
		return defaultVal, nil
	}
	return ParseTimestamp(timestampStr, fieldName)
}
