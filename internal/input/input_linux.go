//go:build linux

package input

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/verte-zerg/switchlife/internal/model"
)

// NewBackend returns the joydev reader for DirectInput. XInput has no Linux
// equivalent.
func NewBackend(method model.InputMethod) Backend {
	if method == model.InputDirectInput {
		return &joydev{fd: -1}
	}
	return unsupported{}
}

// joydev reads /dev/input/jsN without blocking and keeps the button mask.
type joydev struct {
	fd    int
	index uint32
	mask  uint32
	buf   [jsEventSize * 64]byte
}

func devicePath(index uint32) string {
	return fmt.Sprintf("/dev/input/js%d", index)
}

func (j *joydev) State(index uint32) (uint32, error) {
	if j.fd >= 0 && j.index != index {
		_ = j.Close()
	}
	if j.fd < 0 {
		fd, err := unix.Open(devicePath(index), unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err != nil {
			if errors.Is(err, unix.ENOENT) || errors.Is(err, unix.ENODEV) {
				return 0, ErrDisconnected
			}
			return 0, fmt.Errorf("open %s: %w", devicePath(index), err)
		}
		j.fd = fd
		j.index = index
		j.mask = 0
	}
	for {
		n, err := unix.Read(j.fd, j.buf[:])
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				return j.mask, nil
			}
			_ = j.Close()
			return 0, ErrDisconnected
		}
		if n == 0 {
			_ = j.Close()
			return 0, ErrDisconnected
		}
		j.mask = applyJSEvents(j.mask, j.buf[:n])
		if n < len(j.buf) {
			return j.mask, nil
		}
	}
}

func (j *joydev) Close() error {
	if j.fd < 0 {
		return nil
	}
	err := unix.Close(j.fd)
	j.fd = -1
	j.mask = 0
	return err
}
