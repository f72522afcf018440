package stream

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/rotblauer/fieldcat/types/fix"
)

// Slice, Filter and Collect after:
// https://betterprogramming.pub/writing-a-stream-api-in-go-afbc3c4350e2

func Slice[T any](ctx context.Context, in []T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for _, element := range in {
			select {
			case <-ctx.Done():
				return
			case out <- element:
			}
		}
	}()
	return out
}

func Filter[T any](ctx context.Context, predicate func(T) bool, in <-chan T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for element := range in {
			if !predicate(element) {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case out <- element:
			}
		}
	}()
	return out
}

func Collect[T any](ctx context.Context, in <-chan T) []T {
	out := make([]T, 0)
	for element := range in {
		select {
		case <-ctx.Done():
			return out
		default:
			out = append(out, element)
		}
	}
	return out
}

// Fixes decodes raw fixes from in, which may hold NDJSON, JSON arrays or
// GeoJSON, and sends them on the returned channel in input order.
// Decoding stops at the first malformed message; its error is sent on the
// error channel, which is closed when reading ends.
// If meterInterval is positive the read rate is logged at that interval.
func Fixes(ctx context.Context, in io.Reader, meterInterval time.Duration) (<-chan fix.RawFix, <-chan error) {
	out := make(chan fix.RawFix)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(out)

		var met *tickScanMeter
		if meterInterval > 0 {
			met = newTickScanMeter(meterInterval)
			defer met.stop()
		}
		err := fix.ScanJSONMessages(in, func(msg json.RawMessage) error {
			return fix.DecodeFixObject(msg, func(f fix.RawFix) error {
				if met != nil {
					met.mark(f.Timestamp, msg)
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case out <- f:
					return nil
				}
			})
		})
		if err != nil {
			errs <- err
		}
	}()
	return out, errs
}
