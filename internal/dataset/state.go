package dataset

import (
	"context"

	"github.com/qmuntal/stateless"

	"wagebrowser/pkg/contracts/domain"
)

// LoadState is the lifecycle state of one descriptor's load
type LoadState string

const (
	StateIdle        LoadState = "Idle"
	StateFetching    LoadState = "Fetching"
	StateFetched     LoadState = "Fetched"
	StateParsing     LoadState = "Parsing"
	StateReady       LoadState = "Ready"
	StateParseFailed LoadState = "ParseFailed"
	StateFetchFailed LoadState = "FetchFailed"
)

// Terminal reports whether no further transition leaves the state
func (s LoadState) Terminal() bool {
	switch s {
	case StateReady, StateParseFailed, StateFetchFailed:
		return true
	default:
		return false
	}
}

const (
	triggerFetch       = "fetch"
	triggerFetched     = "fetched"
	triggerFetchFailed = "fetch_failed"
	triggerParse       = "parse"
	triggerParsed      = "parsed"
	triggerParseFailed = "parse_failed"
)

// Entry is a cached terminal outcome of a load. Only Ready and ParseFailed
// entries are ever stored; fetch failures are retried on the next request.
type Entry struct {
	File  *domain.LoadedFile
	State LoadState
	Err   error
}

// newLoadMachine wires the load lifecycle. settle runs when a cacheable
// terminal state is entered, observe on every transition.
func newLoadMachine(settle func(ctx context.Context, entry Entry), observe func(ctx context.Context, from, to LoadState)) *stateless.StateMachine {
	m := stateless.NewStateMachine(StateIdle)

	m.Configure(StateIdle).
		Permit(triggerFetch, StateFetching)

	m.Configure(StateFetching).
		Permit(triggerFetched, StateFetched).
		Permit(triggerFetchFailed, StateFetchFailed)

	m.Configure(StateFetched).
		Permit(triggerParse, StateParsing)

	m.Configure(StateParsing).
		Permit(triggerParsed, StateReady).
		Permit(triggerParseFailed, StateParseFailed)

	settleFromArgs := func(ctx context.Context, args ...any) error {
		if len(args) > 0 {
			if entry, ok := args[0].(Entry); ok {
				settle(ctx, entry)
			}
		}
		return nil
	}
	m.Configure(StateReady).OnEntryFrom(triggerParsed, settleFromArgs)
	m.Configure(StateParseFailed).OnEntryFrom(triggerParseFailed, settleFromArgs)
	m.Configure(StateFetchFailed)

	m.OnTransitioned(func(ctx context.Context, t stateless.Transition) {
		observe(ctx, t.Source.(LoadState), t.Destination.(LoadState))
	})

	return m
}
