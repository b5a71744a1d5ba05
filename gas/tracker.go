package gas

// tracker.go — the shared gas counter (spec §4.2): a (consumed, limit)
// pair behind a pointer handle, exposing Consume. Grounded on core/gas_table.go's
// counter pattern, generalized to an explicit handle per spec §9's
// design note ("reimplement interior mutability as an explicit handle
// threaded through call arguments ... the WASM host never calls back
// into the executor, so there is no true aliasing requirement").

import "grug/apperror"

// Tracker is the mutable gas counter threaded through one call's
// entire call tree. It is not safe for concurrent use — only the
// enclosing call may mutate it (spec §5 shared-resource policy).
type Tracker struct {
	consumed uint64
	limit    uint64
	schedule *Schedule
}

// NewTracker constructs a Tracker with the given gas limit and
// schedule.
func NewTracker(limit uint64, schedule *Schedule) *Tracker {
	if schedule == nil {
		schedule = DefaultSchedule()
	}
	return &Tracker{limit: limit, schedule: schedule}
}

// Consume charges amount against the tracker. On exceeding the limit
// it returns apperror.OutOfGas and the current call (and thus tx)
// must terminate with a fatal error for that tx (spec §4.2).
func (t *Tracker) Consume(amount uint64, reason string) error {
	next := t.consumed + amount
	if next > t.limit || next < t.consumed /* overflow */ {
		t.consumed = t.limit
		return apperror.OutOfGas("out of gas consuming " + reason)
	}
	t.consumed = next
	return nil
}

// ConsumeOp is a convenience wrapper charging the schedule's cost for
// op given a byte length.
func (t *Tracker) ConsumeOp(op Op, length uint64) error {
	return t.Consume(t.schedule.Cost(op, length), string(op))
}

func (t *Tracker) Consumed() uint64 { return t.consumed }
func (t *Tracker) Limit() uint64    { return t.limit }
func (t *Tracker) Remaining() uint64 {
	if t.consumed >= t.limit {
		return 0
	}
	return t.limit - t.consumed
}
