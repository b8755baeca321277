package core

// LPC1343 peripheral register map (UM10375). These addresses are fixed by the
// silicon.

// System control block
const (
	SysconBase = 0x40048000

	SYSMEMREMAP   = 0x000
	PRESETCTRL    = 0x004
	SYSPLLCTRL    = 0x008
	SYSPLLSTAT    = 0x00C
	USBPLLCTRL    = 0x010
	USBPLLSTAT    = 0x014
	SYSOSCCTRL    = 0x020
	WDTOSCCTRL    = 0x024
	IRCCTRL       = 0x028
	SYSRESSTAT    = 0x030
	SYSPLLCLKSEL  = 0x040
	SYSPLLCLKUEN  = 0x044
	USBPLLCLKSEL  = 0x048
	USBPLLCLKUEN  = 0x04C
	MAINCLKSEL    = 0x070
	MAINCLKUEN    = 0x074
	SYSAHBCLKDIV  = 0x078
	SYSAHBCLKCTRL = 0x080
	SSP0CLKDIV    = 0x094
	UARTCLKDIV    = 0x098
	SSP1CLKDIV    = 0x09C
	TRACECLKDIV   = 0x0AC
	SYSTICKCLKDIV = 0x0B0
	USBCLKSEL     = 0x0C0
	USBCLKUEN     = 0x0C4
	USBCLKDIV     = 0x0C8
	WDTCLKSEL     = 0x0D0
	WDTCLKUEN     = 0x0D4
	WDTCLKDIV     = 0x0D8
	CLKOUTCLKSEL  = 0x0E0
	CLKOUTUEN     = 0x0E4
	CLKOUTDIV     = 0x0E8
	PDSLEEPCFG    = 0x230
	PDAWAKECFG    = 0x234
	PDRUNCFG      = 0x238
	DEVICEID      = 0x3F4
)

// PDRUNCFG power-down bits; a set bit keeps the block powered down
const (
	PDIRCOut = 0
	PDIRC    = 1
	PDFlash  = 2
	PDBOD    = 3
	PDADC    = 4
	PDSysOsc = 5
	PDWDTOsc = 6
	PDSysPLL = 7
	PDUSBPLL = 8
	PDUSBPad = 10
)

// SYSAHBCLKCTRL clock enable bits
const (
	AHBSys    = 0
	AHBROM    = 1
	AHBRAM    = 2
	AHBFlash1 = 3
	AHBFlash2 = 4
	AHBI2C    = 5
	AHBGPIO   = 6
	AHBCT16B0 = 7
	AHBCT16B1 = 8
	AHBCT32B0 = 9
	AHBCT32B1 = 10
	AHBSSP0   = 11
	AHBUART   = 12
	AHBADC    = 13
	AHBUSBReg = 14
	AHBWDT    = 15
	AHBIOCON  = 16
	AHBSSP1   = 18
)

// Syscon returns the address of a system control register
func Syscon(offset uint32) uint32 {
	return SysconBase + offset
}

// I/O configuration block
const (
	IOCONBase = 0x40044000
)

// IOCON returns the address of an I/O configuration register
func IOCON(offset uint32) uint32 {
	return IOCONBase + offset
}

// GPIO ports
const (
	GPIOBase   = 0x50000000
	GPIOStride = 0x10000

	GPIODATA = 0x3FFC
	GPIODIR  = 0x8000
	GPIOIS   = 0x8004
	GPIOIBE  = 0x8008
	GPIOIEV  = 0x800C
	GPIOIE   = 0x8010
	GPIORIS  = 0x8014
	GPIOMIS  = 0x8018
	GPIOIC   = 0x801C
)

// GPIOReg returns the address of a register of port
func GPIOReg(port uint8, offset uint32) uint32 {
	return GPIOBase + uint32(port)<<16 + offset
}

// GPIOData returns the masked data address of port. Reads through it see only
// the bits in mask and writes through it change only those bits.
func GPIOData(port uint8, mask uint32) uint32 {
	return GPIOBase + uint32(port)<<16 + (mask&0xFFF)<<2
}

// 32-bit counter/timers CT32B0 and CT32B1
const (
	Timer32Base   = 0x40014000
	Timer32Stride = 0x4000

	TMR32IR  = 0x000
	TMR32TCR = 0x004
	TMR32TC  = 0x008
	TMR32PR  = 0x00C
	TMR32PC  = 0x010
	TMR32MCR = 0x014
	TMR32MR0 = 0x018
	TMR32MR1 = 0x01C
	TMR32MR2 = 0x020
	TMR32MR3 = 0x024
)

// Timer32Reg returns the address of a register of timer channel
func Timer32Reg(channel uint8, offset uint32) uint32 {
	return Timer32Base + uint32(channel)<<14 + offset
}

// UART
const (
	UARTBase = 0x40008000

	UARTRBR = 0x00 // receive buffer (DLAB=0, read)
	UARTTHR = 0x00 // transmit holding (DLAB=0, write)
	UARTDLL = 0x00 // divisor latch LSB (DLAB=1)
	UARTDLM = 0x04 // divisor latch MSB (DLAB=1)
	UARTIER = 0x04 // interrupt enable (DLAB=0)
	UARTIIR = 0x08 // interrupt identification (read)
	UARTFCR = 0x08 // FIFO control (write)
	UARTLCR = 0x0C
	UARTLSR = 0x14
)

// UARTReg returns the address of a UART register
func UARTReg(offset uint32) uint32 {
	return UARTBase + offset
}

// Nested vectored interrupt controller
const (
	NVICBase = 0xE000E000

	NVICISER = 0x100
	NVICICER = 0x180
	NVICISPR = 0x200
	NVICICPR = 0x280
	NVICIABR = 0x300
	NVICIPR  = 0x400
	NVICSTIR = 0xF00
)

// NVICReg returns the address of word n of an NVIC register bank
func NVICReg(bank uint32, n uint32) uint32 {
	return NVICBase + bank + n<<2
}
