package execute

// cron.go — the post-block cronjob scheduler of spec §4.7: after every
// tx in a block has run, each configured contract whose interval has
// elapsed gets a "cron_execute" entry-point invocation, ordered by
// (next_scheduled, contract address) ascending. Grounded on
// core/ledger.go's StateRoot (kept: sort a map's keys before acting on
// them so the result is deterministic across nodes; replaced: state
// hashing becomes cronjob-due ordering).

import (
	"sort"

	"grug/apperror"
	"grug/events"
	"grug/gas"
	"grug/store"
	"grug/types"
)

// cronSchedule tracks each cronjob contract's next eligible block
// timestamp, keyed by contract address hex.
type cronSchedule struct {
	Next map[string]int64 `json:"next"`
}

// RunCronjobs invokes every due cronjob contract against committed,
// in (next_scheduled, contract address) order, logging and continuing
// past any single contract's failure (spec §4.7/§8 scenario 4), except
// that a math error additionally runs OnCronMathError when that hook
// is set.
func (p *Pipeline) RunCronjobs(committed store.Storage, block types.BlockInfo, logf func(format string, args ...any)) (events.Node, error) {
	cfg, ok, err := p.State.LoadConfig(committed)
	if err != nil {
		return failNode("cron", err), err
	}
	if !ok || len(cfg.Cronjobs) == 0 {
		return okNode("cron"), nil
	}

	schedEnc, schedDec := jsonCodec[cronSchedule]()
	scheduleItem := store.NewItem("cron_schedule", schedEnc, schedDec)

	sched, ok, err := scheduleItem.Load(committed)
	if err != nil {
		return failNode("cron", err), err
	}
	if !ok {
		sched = cronSchedule{Next: map[string]int64{}}
	}
	if sched.Next == nil {
		sched.Next = map[string]int64{}
	}

	type due struct {
		addrHex  string
		addr     types.Address
		interval int64
		next     int64
	}
	var candidates []due
	for addrHex, interval := range cfg.Cronjobs {
		addr, err := types.ParseAddress(addrHex)
		if err != nil {
			logf("cron: skipping malformed contract address %q: %v", addrHex, err)
			continue
		}
		next, scheduled := sched.Next[addrHex]
		if !scheduled {
			next = block.Timestamp
		}
		candidates = append(candidates, due{addrHex: addrHex, addr: addr, interval: interval, next: next})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].next != candidates[j].next {
			return candidates[i].next < candidates[j].next
		}
		return candidates[i].addrHex < candidates[j].addrHex
	})

	node := okNode("cron")
	for _, c := range candidates {
		if c.next > block.Timestamp {
			continue
		}
		jobBuf := store.NewBuffer(committed)
		tracker := gas.NewTracker(p.CronGasLimit(), p.Gas)
		jobErr := p.runCronjob(jobBuf, block, c.addr, tracker)
		if jobErr == nil {
			flushInto(committed, jobBuf)
			node.SubEvents = append(node.SubEvents, okNode("cron:"+c.addrHex))
			sched.Next[c.addrHex] = block.Timestamp + c.interval
			continue
		}

		logf("cron: contract %s failed: %v", c.addrHex, jobErr)
		node.SubEvents = append(node.SubEvents, failNode("cron:"+c.addrHex, jobErr))
		sched.Next[c.addrHex] = block.Timestamp + c.interval
		if apperror.IsMath(jobErr) && p.OnCronMathError != nil {
			p.OnCronMathError(c.addr)
		}
	}

	scheduleItem.Save(committed, sched)
	return node, nil
}

func (p *Pipeline) runCronjob(buf store.Storage, block types.BlockInfo, contract types.Address, tracker *gas.Tracker) error {
	acct, exists, err := p.State.LoadAccount(buf, contract)
	if err != nil {
		return err
	}
	if !exists {
		return apperror.NotFound("cron: contract account not found")
	}
	resp, err := p.invokeContract(buf, block, tracker, "cron_execute", contract, acct.CodeHash, contract, nil)
	if err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	node := okNode("cron")
	return p.runSubMsgs(buf, block, contract, acct.CodeHash, resp.SubMsgs, tracker, &node)
}

// CronGasLimit bounds a single cronjob invocation (spec §4.7 leaves the
// exact figure to the chain; Grug fixes a flat 3,000,000 budget,
// distinct from user tx gas limits and not configurable).
func (p *Pipeline) CronGasLimit() uint64 {
	return 3_000_000
}
