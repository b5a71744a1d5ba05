package abci

// preparer.go — the pluggable block-proposal ordering policy (spec
// §4.7's PrepareProposal "delegate to ProposalPreparer, then trim to
// max_bytes"). Grounded on execute/invoker.go's ContractInvoker seam
// (kept: the adapter depends on a narrow interface it doesn't
// implement itself, so alternate proposal policies plug in without
// touching the adapter); no teacher analogue for tx ordering itself,
// since the teacher's txPool only ever does Pick(max) with no
// pluggable policy.

import "grug/types"

// ProposalPreparer orders (and may filter) candidate transactions
// into the sequence a proposer will include them in a block.
type ProposalPreparer interface {
	PrepareTxs(txs []types.Tx) []types.Tx
}

// FIFOPreparer is the default ProposalPreparer: submission order,
// unchanged.
type FIFOPreparer struct{}

func (FIFOPreparer) PrepareTxs(txs []types.Tx) []types.Tx { return txs }
