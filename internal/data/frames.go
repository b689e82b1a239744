package data

// LogicFramesPerSecond is the fixed simulation rate of the legacy engine.
// All template durations are milliseconds; all runtime timers are frames.
const LogicFramesPerSecond = 30

// FramesFromMillis converts a millisecond duration from template data into a
// logic-frame span, rounding up so sub-frame durations never collapse to zero.
func FramesFromMillis(ms int32) int32 {
	if ms <= 0 {
		return 0
	}
	return int32((int64(ms)*LogicFramesPerSecond + 999) / 1000)
}
