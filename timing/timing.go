package timing

import "time"

var (
	startTime     time.Time
	lastFrameTime time.Time
	dt            float32
	frameCount    uint64
)

// Init resets the clock. Call once before the frame loop starts.
func Init() {
	startTime = time.Now()
	lastFrameTime = startTime
	dt = 0
	frameCount = 0
}

// FrameStarted samples the clock and updates the delta time of the frame.
func FrameStarted() {
	now := time.Now()
	dt = float32(now.Sub(lastFrameTime).Seconds())
	lastFrameTime = now
	frameCount++
}

// DT is the time in seconds between the last two calls to FrameStarted
func DT() float32 {
	return dt
}

// ElapsedTime is the time in seconds since Init
func ElapsedTime() float32 {
	return float32(time.Since(startTime).Seconds())
}

func FrameCount() uint64 {
	return frameCount
}

// FPS based on the last frame delta. Returns 0 before the second frame.
func FPS() float32 {
	if dt == 0 {
		return 0
	}
	return 1 / dt
}
