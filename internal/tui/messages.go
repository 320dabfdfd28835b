package tui

import "time"

// FrameMsg is sent once per display frame with the frame's time.
type FrameMsg time.Time
