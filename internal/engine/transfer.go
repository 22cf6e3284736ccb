package engine

import (
	"cmp"
	"slices"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// DefaultTransferWindow is the maximum time between the two legs of an
// internal transfer.
const DefaultTransferWindow = 15 * time.Minute

type transferEdge struct {
	out *model.Transaction
	in  *model.Transaction
	gap time.Duration
}

// MatchTransfers pairs outbound and inbound asset transactions on different
// channels that have the same magnitude and lie within window of each other.
//
// Candidate edges are ranked by time gap, then outbound ID and channel, then
// inbound ID and channel, and accepted greedily while both ends are still free. Under that
// total order the globally best remaining edge is always the mutual nearest
// partner of both its ends, so this is the iterated mutual-nearest matching.
// It is not the one-shot reading in which a transaction whose nearest
// partner was taken stays unmatched: with A(-500 10:00), B(+500 10:02),
// D(-500 10:03) and E(+500 10:05), D-B pairs first and A then pairs with E.
// Each transaction appears in at most one pair and the result does not
// depend on input order. Transactions are identified by channel and ID, so
// legs on different channels may share a source ID.
func MatchTransfers(txns []model.Transaction, classes map[string]ChannelClass, window time.Duration) []model.TransferPair {
	outs := make(map[string][]*model.Transaction)
	ins := make(map[string][]*model.Transaction)
	for i := range txns {
		t := &txns[i]
		if !t.HasDate() || t.Amount.IsZero() || !classes[t.ChannelID].IsAsset() {
			continue
		}
		key := t.Amount.Abs().StringFixed(2)
		if t.Amount.IsNegative() {
			outs[key] = append(outs[key], t)
		} else {
			ins[key] = append(ins[key], t)
		}
	}

	var edges []transferEdge
	for key, outbound := range outs {
		inbound := ins[key]
		if len(inbound) == 0 {
			continue
		}
		slices.SortFunc(inbound, func(a, b *model.Transaction) int {
			return a.Date.Compare(*b.Date)
		})
		for _, out := range outbound {
			lo := out.Date.Add(-window)
			start, _ := slices.BinarySearchFunc(inbound, lo, func(t *model.Transaction, target time.Time) int {
				return t.Date.Compare(target)
			})
			for _, in := range inbound[start:] {
				gap := in.Date.Sub(*out.Date)
				if gap > window {
					break
				}
				if in.ChannelID == out.ChannelID || !in.Amount.Equal(out.Amount.Neg()) {
					continue
				}
				if gap < 0 {
					gap = -gap
				}
				edges = append(edges, transferEdge{out: out, in: in, gap: gap})
			}
		}
	}

	slices.SortFunc(edges, func(a, b transferEdge) int {
		return cmp.Or(
			cmp.Compare(a.gap, b.gap),
			compareKeys(a.out.Key(), b.out.Key()),
			compareKeys(a.in.Key(), b.in.Key()),
		)
	})

	used := make(map[model.TransactionKey]bool)
	var pairs []model.TransferPair
	for _, e := range edges {
		if used[e.out.Key()] || used[e.in.Key()] {
			continue
		}
		used[e.out.Key()] = true
		used[e.in.Key()] = true
		pairs = append(pairs, model.TransferPair{
			OutboundID:       e.out.ID,
			InboundID:        e.in.ID,
			OutboundChannel:  e.out.ChannelID,
			InboundChannel:   e.in.ChannelID,
			Amount:           e.in.Amount,
			Gap:              e.gap,
			OutboundOccurred: *e.out.Date,
		})
	}

	slices.SortFunc(pairs, func(a, b model.TransferPair) int {
		return cmp.Or(
			a.OutboundOccurred.Compare(b.OutboundOccurred),
			compareKeys(a.OutboundKey(), b.OutboundKey()),
		)
	})
	return pairs
}

func compareKeys(a, b model.TransactionKey) int {
	return cmp.Or(cmp.Compare(a.ID, b.ID), cmp.Compare(a.ChannelID, b.ChannelID))
}

// Partners maps every matched transaction to its partner leg.
func Partners(pairs []model.TransferPair) map[model.TransactionKey]model.TransactionKey {
	partners := make(map[model.TransactionKey]model.TransactionKey, 2*len(pairs))
	for _, p := range pairs {
		partners[p.OutboundKey()] = p.InboundKey()
		partners[p.InboundKey()] = p.OutboundKey()
	}
	return partners
}
