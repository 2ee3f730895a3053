//go:build !windows

package hirestimer

func begin() error { return nil }

func end() {}
