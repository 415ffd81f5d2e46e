package ticktimer

import (
	"sort"

	"golang.org/x/exp/slices"
)

type (
	// waitRecord is the bookkeeping entry for one thread blocked for time.
	// One record is allocated per sleep, owned by the sleeping thread; the
	// queue holds it by reference only, never the thread itself.
	waitRecord struct {
		deadline Tick
		seq      uint64
		thread   ThreadRef
		wake     chan struct{}
	}

	// deadlineQueue keeps wait records in non-decreasing deadline order, ties
	// broken by insertion sequence. Guarded by Timer.mask.
	deadlineQueue struct {
		records []*waitRecord
	}
)

// insert places rec in sorted position.
func (x *deadlineQueue) insert(rec *waitRecord) {
	i := sort.Search(len(x.records), func(i int) bool {
		r := x.records[i]
		if r.deadline != rec.deadline {
			return r.deadline > rec.deadline
		}
		return r.seq > rec.seq
	})
	x.records = slices.Insert(x.records, i, rec)
}

// popWhileDue removes and returns every record with deadline <= now. Sorted
// order means the scan stops at the first record still in the future,
// bounding the drain to the records actually woken, not the queue length.
func (x *deadlineQueue) popWhileDue(now Tick) []*waitRecord {
	n := 0
	for n < len(x.records) {
		rec := x.records[n]
		if rec.deadline < 0 {
			panic(`ticktimer: interrupt: negative wake deadline`)
		}
		if rec.deadline > now {
			break
		}
		n++
	}
	if n == 0 {
		return nil
	}

	due := make([]*waitRecord, n)
	copy(due, x.records)

	rest := copy(x.records, x.records[n:])
	for i := rest; i < len(x.records); i++ {
		x.records[i] = nil // clear for GC
	}
	x.records = x.records[:rest]

	return due
}

func (x *deadlineQueue) len() int {
	return len(x.records)
}
