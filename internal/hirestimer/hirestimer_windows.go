//go:build windows

package hirestimer

import (
	"fmt"

	"golang.org/x/sys/windows"
)

var (
	winmm               = windows.NewLazySystemDLL("winmm.dll")
	procTimeBeginPeriod = winmm.NewProc("timeBeginPeriod")
	procTimeEndPeriod   = winmm.NewProc("timeEndPeriod")
)

const periodMs = 1

func begin() error {
	if err := procTimeBeginPeriod.Find(); err != nil {
		return err
	}
	r, _, _ := procTimeBeginPeriod.Call(periodMs)
	if r != 0 {
		return fmt.Errorf("timeBeginPeriod returned %d", r)
	}
	return nil
}

func end() {
	_, _, _ = procTimeEndPeriod.Call(periodMs)
}
