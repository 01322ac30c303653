package acquire

import (
	"fmt"
	"io"
	"time"

	"github.com/banshee-data/sensorcheck/internal/timeutil"
)

// pump reads fixed size records from a device file and stamps each with
// the time it was read. A read error is sent once and ends the pump.
// Closing r unblocks a pending read.
func pump(r io.Reader, size int, clock timeutil.Clock, out chan<- Signal) func(<-chan struct{}) error {
	return func(done <-chan struct{}) error {
		defer close(out)
		if size <= 0 {
			select {
			case out <- Signal{Err: fmt.Errorf("record size %d", size), ReadAt: clock.Now()}:
			case <-done:
			}
			return nil
		}
		for {
			record := make([]byte, size)
			_, err := io.ReadFull(r, record)
			sig := Signal{Data: record, ReadAt: clock.Now()}
			if err != nil {
				select {
				case <-done:
					return nil
				default:
				}
				sig = Signal{Err: fmt.Errorf("read record: %w", err), ReadAt: sig.ReadAt}
			}
			select {
			case out <- sig:
			case <-done:
				return nil
			}
			if err != nil {
				return nil
			}
		}
	}
}

// simulate stands in for a hardware trigger on a polled sensor: it emits
// one readiness signal per period until lifetime has passed.
func simulate(period, lifetime time.Duration, clock timeutil.Clock, out chan<- Signal) func(<-chan struct{}) error {
	return func(done <-chan struct{}) error {
		defer close(out)
		ticker := clock.NewTicker(period)
		defer ticker.Stop()
		deadline := clock.Now().Add(lifetime)
		for {
			select {
			case <-done:
				return nil
			case now := <-ticker.C():
				if !now.Before(deadline) {
					return nil
				}
				select {
				case out <- Signal{ReadAt: now}:
				case <-done:
					return nil
				}
			}
		}
	}
}
