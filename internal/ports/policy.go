package ports

import "time"

type Policy struct {
	// ReadErrorBackoff is slept after a failed device read so an unplugged
	// device does not spin the loop.
	ReadErrorBackoff time.Duration
}
