// Package hirestimer raises the OS timer resolution while a controller is
// being sampled at millisecond rates.
package hirestimer

// Release undoes one Acquire. It is safe to call more than once.
type Release func()

// Acquire requests 1ms timer resolution and returns a func that restores it.
// On platforms without a global timer resolution it is a no-op.
func Acquire() Release {
	if err := begin(); err != nil {
		return func() {}
	}
	done := false
	return func() {
		if done {
			return
		}
		done = true
		end()
	}
}
