package booking

import (
	"time"

	"rentcars/internal/domain/shared/money"
)

// RefundPolicy is snapshotted on each booking so later policy changes do not
// alter what an existing renter was promised.
type RefundPolicy struct {
	CancellationCutoff time.Duration
	FullRefundBefore   time.Duration
	PartialRefundBps   int64
}

// DefaultRefundPolicy: cancellable until 24h before pickup, full refund beyond
// 48h, half the total between 24h and 48h.
func DefaultRefundPolicy() RefundPolicy {
	return RefundPolicy{
		CancellationCutoff: 24 * time.Hour,
		FullRefundBefore:   48 * time.Hour,
		PartialRefundBps:   5000,
	}
}

func (p RefundPolicy) IsZero() bool {
	return p.CancellationCutoff == 0 && p.FullRefundBefore == 0 && p.PartialRefundBps == 0
}

// WithinCancellationWindow reports whether a renter may still cancel with
// untilPickup left.
func (p RefundPolicy) WithinCancellationWindow(untilPickup time.Duration) bool {
	return untilPickup > p.CancellationCutoff
}

// RefundFor returns the part of total returned when cancelling with untilPickup left.
// The zero tier cannot be reached through Cancel because the window closes at the
// same cutoff; it stays for quoting refunds on bookings that can no longer be cancelled.
func (p RefundPolicy) RefundFor(total money.Money, untilPickup time.Duration) money.Money {
	switch {
	case untilPickup > p.FullRefundBefore:
		return total
	case untilPickup >= p.CancellationCutoff:
		return total.PercentBps(clampBps(p.PartialRefundBps))
	default:
		return total.Zero()
	}
}

func clampBps(bps int64) int64 {
	if bps < 0 {
		return 0
	}
	if bps > 10000 {
		return 10000
	}
	return bps
}
