//go:build !linux

package input

// Line buffered terminal: quit key works after Enter.
func setCbreak(fd int) (func() error, error) { return nil, nil }
