package store

import "github.com/sirupsen/logrus"

// pageSlack matches spec.md §4.5's admission predicate headroom — one
// frame's worth of cushion against the next disk-tier page allocation.
const pageSlack = 4096

// Accountant tracks running memory/disk totals per relation against a
// single global budget, and decides at insert time whether a candidate
// tuple is admitted to the in-memory tier (spec.md §4.5). One Accountant
// is shared by every tiered store in a process (or, under the sharding
// model of spec.md §5, by every tiered store in one shard).
type Accountant struct {
	budget int64

	relations      map[string]*relationTotals
	catalogueBytes int64
}

type relationTotals struct {
	memBytes   int64
	diskFrames int64
	frameSize  int64
}

func NewAccountant(budgetBytes int64) *Accountant {
	return &Accountant{budget: budgetBytes, relations: make(map[string]*relationTotals)}
}

func (a *Accountant) totalsFor(relation string) *relationTotals {
	t, ok := a.relations[relation]
	if !ok {
		t = &relationTotals{}
		a.relations[relation] = t
	}
	return t
}

// inMemTotal is the sum of every relation's resident compressed bytes plus
// the enum catalogue's resident footprint, used by ToMemory's admission
// predicate (spec.md §4.1: "the catalogue's byte size is reported to the
// accountant").
func (a *Accountant) inMemTotal() int64 {
	total := a.catalogueBytes
	for _, t := range a.relations {
		total += t.memBytes
	}
	return total
}

// SetCatalogueBytes records the enum catalogue's current resident footprint.
func (a *Accountant) SetCatalogueBytes(n int64) { a.catalogueBytes = n }

// ToMemory implements spec.md §4.5's admission predicate:
//
//	in_mem_total + model_footprint + candidate_bytes + page_slack <= budget
//
// Re-evaluated on every insert — once a relation has spilled, later
// inserts may still be admitted to memory if other relations' totals
// shrink (spec.md §4.5).
func (a *Accountant) ToMemory(modelFootprint, candidateBytes int64) bool {
	if a.budget < 0 { // unbounded budget (memory_budget = infinity)
		return true
	}
	return a.inMemTotal()+modelFootprint+candidateBytes+pageSlack <= a.budget
}

func (a *Accountant) AddMem(relation string, n int64) {
	a.totalsFor(relation).memBytes += n
}

func (a *Accountant) RemoveMem(relation string, n int64) {
	a.totalsFor(relation).memBytes -= n
}

func (a *Accountant) AddDisk(relation string, frameSize int64) {
	t := a.totalsFor(relation)
	t.diskFrames++
	t.frameSize = frameSize
	logrus.Infof("accountant: %s spilled to disk, on_disk_count=%d", relation, t.diskFrames)
}

// MemTotal returns a relation's resident compressed-byte total.
func (a *Accountant) MemTotal(relation string) int64 { return a.totalsFor(relation).memBytes }

// DiskTotal returns a relation's disk-tier byte total
// (on_disk_count * frame_size), per spec.md §8 invariant 3.
func (a *Accountant) DiskTotal(relation string) int64 {
	t := a.totalsFor(relation)
	return t.diskFrames * t.frameSize
}

// DiskFrameCount returns a relation's on_disk_count.
func (a *Accountant) DiskFrameCount(relation string) int64 { return a.totalsFor(relation).diskFrames }
