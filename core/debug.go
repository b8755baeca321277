package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// BootEvent captures one clock bring-up step for post-mortem analysis
type BootEvent struct {
	Stage Stage  // Sequencer stage that produced the event
	Addr  uint32 // Register the stage waited on or wrote last
	Value uint32 // Value written, or the frequency for StageStable
	Polls uint32 // Condition polls spent in the stage's wait, if any
}

const (
	BootRingSize = 16 // Keep the last 16 events
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	bootRing     [BootRingSize]BootEvent
	bootRingHead uint8
	bootRingLen  uint8
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, stdout, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordBootEvent appends an event to the boot ring and echoes it to the
// debug writer
func RecordBootEvent(ev BootEvent) {
	bootRing[bootRingHead] = ev
	bootRingHead = (bootRingHead + 1) % BootRingSize
	if bootRingLen < BootRingSize {
		bootRingLen++
	}
	DebugPrintln(formatBootEvent(ev))
}

// BootEvents returns the recorded events, oldest first
func BootEvents() []BootEvent {
	events := make([]BootEvent, 0, bootRingLen)
	start := (bootRingHead + BootRingSize - bootRingLen) % BootRingSize
	for i := uint8(0); i < bootRingLen; i++ {
		events = append(events, bootRing[(start+i)%BootRingSize])
	}
	return events
}

// DumpBootTrace writes the boot ring to the debug writer regardless of
// whether debug output is enabled
func DumpBootTrace() {
	if debugPrintln == nil {
		return
	}
	debugPrintln("[BOOT] === Clock bring-up trace ===")
	for _, ev := range BootEvents() {
		debugPrintln(formatBootEvent(ev))
	}
	debugPrintln("[BOOT] === End trace ===")
}

// ClearBootTrace empties the boot ring
func ClearBootTrace() {
	for i := range bootRing {
		bootRing[i] = BootEvent{}
	}
	bootRingHead = 0
	bootRingLen = 0
}

func formatBootEvent(ev BootEvent) string {
	msg := "[BOOT] " + ev.Stage.String() + " reg=" + hex32(ev.Addr) + " val=" + hex32(ev.Value)
	if ev.Polls > 0 {
		msg += " polls=" + utoa(ev.Polls)
	}
	return msg
}
