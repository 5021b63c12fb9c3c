package core

// itoa formats n in decimal without pulling in fmt, which keeps firmware
// images small
func itoa(n int) string {
	if n == 0 {
		return "0"
	}

	var buf [20]byte
	pos := len(buf)
	u := uint64(n)
	if n < 0 {
		u = uint64(-n)
	}
	for u > 0 {
		pos--
		buf[pos] = byte('0' + u%10)
		u /= 10
	}
	if n < 0 {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
