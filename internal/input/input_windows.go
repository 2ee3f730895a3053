//go:build windows

package input

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/verte-zerg/switchlife/internal/model"
)

var (
	xinput             = windows.NewLazySystemDLL("xinput1_4.dll")
	procXInputGetState = xinput.NewProc("XInputGetState")

	winmm           = windows.NewLazySystemDLL("winmm.dll")
	procJoyGetPosEx = winmm.NewProc("joyGetPosEx")
)

const (
	errorDeviceNotConnected = 1167

	joyErrNoError    = 0
	joyErrParms      = 165
	joyErrUnplugged  = 167
	mmsysErrNoDriver = 6

	joyReturnButtons = 0x80
)

// NewBackend returns the Windows backend for method.
func NewBackend(method model.InputMethod) Backend {
	switch method {
	case model.InputXInput:
		return xinputBackend{}
	case model.InputDirectInput:
		return winmmBackend{}
	default:
		return unsupported{}
	}
}

type xinputGamepad struct {
	Buttons      uint16
	LeftTrigger  uint8
	RightTrigger uint8
	ThumbLX      int16
	ThumbLY      int16
	ThumbRX      int16
	ThumbRY      int16
}

type xinputState struct {
	PacketNumber uint32
	Gamepad      xinputGamepad
}

type xinputBackend struct{}

func (xinputBackend) State(index uint32) (uint32, error) {
	if err := procXInputGetState.Find(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	var st xinputState
	r, _, _ := procXInputGetState.Call(uintptr(index), uintptr(unsafe.Pointer(&st)))
	switch r {
	case 0:
		return uint32(st.Gamepad.Buttons), nil
	case errorDeviceNotConnected:
		return 0, ErrDisconnected
	default:
		return 0, fmt.Errorf("XInputGetState returned %d", r)
	}
}

func (xinputBackend) Close() error { return nil }

type joyInfoEx struct {
	Size         uint32
	Flags        uint32
	Xpos         uint32
	Ypos         uint32
	Zpos         uint32
	Rpos         uint32
	Upos         uint32
	Vpos         uint32
	Buttons      uint32
	ButtonNumber uint32
	POV          uint32
	Reserved1    uint32
	Reserved2    uint32
}

type winmmBackend struct{}

func (winmmBackend) State(index uint32) (uint32, error) {
	if err := procJoyGetPosEx.Find(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	info := joyInfoEx{Flags: joyReturnButtons}
	info.Size = uint32(unsafe.Sizeof(info))
	r, _, _ := procJoyGetPosEx.Call(uintptr(index), uintptr(unsafe.Pointer(&info)))
	switch r {
	case joyErrNoError:
		return info.Buttons, nil
	case joyErrUnplugged, joyErrParms, mmsysErrNoDriver:
		return 0, ErrDisconnected
	default:
		return 0, fmt.Errorf("joyGetPosEx returned %d", r)
	}
}

func (winmmBackend) Close() error { return nil }
