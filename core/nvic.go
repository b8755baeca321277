package core

// IRQ is an LPC1343 external interrupt number
type IRQ uint8

// LPC1343 interrupt sources. IRQ 0..39 are the start-logic wakeup inputs.
const (
	IRQWakeup0  IRQ = 0
	IRQI2C      IRQ = 40
	IRQTimer160 IRQ = 41
	IRQTimer161 IRQ = 42
	IRQTimer320 IRQ = 43
	IRQTimer321 IRQ = 44
	IRQSSP0     IRQ = 45
	IRQUART     IRQ = 46
	IRQUSBIRQ   IRQ = 47
	IRQUSBFIQ   IRQ = 48
	IRQADC      IRQ = 49
	IRQWDT      IRQ = 50
	IRQBOD      IRQ = 51
	IRQPIO3     IRQ = 52
	IRQPIO2     IRQ = 53
	IRQPIO1     IRQ = 54
	IRQPIO0     IRQ = 55
	IRQSSP1     IRQ = 56
)

// EnableIRQ enables irq in the NVIC. ISER is write-one-to-set, so a single
// bit store leaves the other interrupts untouched.
func EnableIRQ(bits *BitEngine, irq IRQ) {
	bits.Write(NVICReg(NVICISER, uint32(irq>>5)), 1<<(irq&0x1F))
}

// DisableIRQ disables irq in the NVIC
func DisableIRQ(bits *BitEngine, irq IRQ) {
	bits.Write(NVICReg(NVICICER, uint32(irq>>5)), 1<<(irq&0x1F))
}

// IRQEnabled reports whether irq is enabled
func IRQEnabled(bits *BitEngine, irq IRQ) bool {
	return bits.ReadBit(NVICReg(NVICISER, uint32(irq>>5)), uint8(irq&0x1F)) == 1
}
