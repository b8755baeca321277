package config

// BoardConfig describes an LPC1343 board and how lpcmon reaches it
type BoardConfig struct {
	Name       string       `json:"name"`
	Mode       string       `json:"mode"` // "blink", "follow_switch" or "monitor"
	Clock      ClockConfig  `json:"clock"`
	Serial     SerialConfig `json:"serial"`
	LED        string       `json:"led"`         // pin name, e.g. "PIO0_7"
	Switch     string       `json:"switch"`      // pin name, e.g. "PIO0_1"
	DelayTimer uint8        `json:"delay_timer"` // CT32B channel used for delays
	BlinkMS    uint32       `json:"blink_ms"`
	PollMS     uint32       `json:"poll_ms"`
}

// ClockConfig is the JSON form of core.ClockConfig. Sources are named
// rather than numbered.
type ClockConfig struct {
	CrystalHz        uint32    `json:"crystal_hz"`
	Bypass           bool      `json:"bypass"`
	PLLSource        string    `json:"pll_source"`  // "irc" or "sysosc"
	PLLControl       uint32    `json:"pll_control"` // SYSPLLCTRL
	MainSource       string    `json:"main_source"` // "irc", "pll_input", "wdt_osc" or "pll"
	AHBDivider       uint32    `json:"ahb_divider"`
	SettleIterations int       `json:"settle_iterations"`
	WDTOscControl    uint32    `json:"wdt_osc_control"`
	WDTOscHz         uint32    `json:"wdt_osc_hz"`
	USB              USBConfig `json:"usb"`
}

// USBConfig is the JSON form of core.USBClockConfig
type USBConfig struct {
	Enabled    *bool  `json:"enabled"` // nil means enabled
	UsePLL     *bool  `json:"use_pll"` // nil means use the USB PLL
	PLLSource  string `json:"pll_source"`
	PLLControl uint32 `json:"pll_control"` // USBPLLCTRL
}

// SerialConfig locates the monitor link
type SerialConfig struct {
	Device        string `json:"device"`
	Baud          int    `json:"baud"`
	ReadTimeoutMS int    `json:"read_timeout_ms"`
	TimeoutMS     int    `json:"timeout_ms"` // request round-trip limit
}
