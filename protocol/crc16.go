package protocol

// CRC16Update folds one byte into crc (CRC-16/MCRF4XX, the Klipper block
// checksum)
func CRC16Update(crc uint16, b byte) uint16 {
	b ^= uint8(crc & 0xFF)
	b ^= b << 4
	w := uint16(b)
	return (w<<8 | crc>>8) ^ (w >> 4) ^ (w << 3)
}

// CRC16 returns the checksum of data
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc = CRC16Update(crc, b)
	}
	return crc
}
