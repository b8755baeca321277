//go:build !tinygo

package core

// nop burns one settling iteration. There is no oscillator to wait for on
// regular Go.
func nop() {}
