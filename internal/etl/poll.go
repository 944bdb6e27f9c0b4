package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/BartekS5/commentflow/pkg/logger"
	"github.com/BartekS5/commentflow/pkg/models"
)

// PollOutcome is the result of waiting for an object.
type PollOutcome int

const (
	PollFound PollOutcome = iota
	PollTimedOut
	PollError
)

func (o PollOutcome) String() string {
	switch o {
	case PollFound:
		return "found"
	case PollTimedOut:
		return "timedOut"
	default:
		return "error"
	}
}

const (
	DefaultPollTimeout  = 600 * time.Second
	DefaultPollInterval = 30 * time.Second
)

// WaitForObject checks ref immediately and then every interval until it
// exists, timeout elapses or ctx is cancelled. The timeout also bounds each
// existence check, so a stalled store cannot hold the wait open. A timeout
// yields PollTimedOut with a PollTimeout error; a store failure or
// cancellation yields PollError with a StorageFailed error.
func WaitForObject(ctx context.Context, store ObjectStore, ref models.ObjectRef, timeout, interval time.Duration) (PollOutcome, error) {
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	log := logger.Named("poll")
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// stopped maps the end of pctx onto an outcome.
	stopped := func() (PollOutcome, error) {
		if err := ctx.Err(); err != nil {
			return PollError, newError(KindStorageFailed, "wait", err)
		}
		return PollTimedOut, errorf(KindPollTimeout, "wait", "%s not visible after %s", ref, timeout)
	}

	for attempt := 1; ; attempt++ {
		ok, err := store.Exists(pctx, ref)
		if err != nil {
			if pctx.Err() != nil {
				return stopped()
			}
			return PollError, newError(KindStorageFailed, fmt.Sprintf("stat %s", ref), err)
		}
		if ok {
			log.Info().Str("object", ref.URI()).Int("attempt", attempt).Msg("object visible")
			return PollFound, nil
		}
		log.Debug().Str("object", ref.URI()).Int("attempt", attempt).Msg("object not visible yet")

		select {
		case <-pctx.Done():
			return stopped()
		case <-ticker.C:
		}
	}
}
