package git

// ParseLog exposes the log record parser for testing.
var ParseLog = parseLog
