// Package huffman builds canonical Huffman codes from symbol frequencies.
//
// This is the Go counterpart of original_source's raman::CodeTree /
// raman::CanonicalCode pair (see tpcc_raman.h's RamanLearning): a frequency
// table per field is turned into a prefix code, canonicalized so codes of
// equal length sort with their symbol order. Canonical form is what lets
// pkg/model store only code lengths (not the tree) and still decode.
package huffman

import (
	"container/heap"
	"sort"
)

// Code is one symbol's canonical Huffman code.
type Code struct {
	Symbol uint32
	Len    int
	Bits   uint64
}

// Table is a fitted canonical Huffman code over an alphabet of symbols.
type Table struct {
	bySymbol map[uint32]Code
	// decode tables, indexed by code length
	firstCode   map[int]uint64
	firstSymIdx map[int]int
	symsByLen   map[int][]uint32
	maxLen      int
}

type treeNode struct {
	freq        uint64
	symbol      uint32
	isLeaf      bool
	left, right *treeNode
}

type nodeHeap []*treeNode

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].freq != h[j].freq {
		return h[i].freq < h[j].freq
	}
	return h[i].symbol < h[j].symbol
}
func (h nodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x interface{}) { *h = append(*h, x.(*treeNode)) }
func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Build constructs a canonical Huffman table from symbol -> frequency.
// Symbols with zero frequency are not assigned a code. A single-symbol
// alphabet gets a 1-bit code so the stream stays well-formed.
func Build(freq map[uint32]uint64) *Table {
	if len(freq) == 0 {
		return &Table{bySymbol: map[uint32]Code{}, firstCode: map[int]uint64{}, firstSymIdx: map[int]int{}, symsByLen: map[int][]uint32{}}
	}

	h := &nodeHeap{}
	heap.Init(h)
	symbols := make([]uint32, 0, len(freq))
	for s := range freq {
		symbols = append(symbols, s)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })
	for _, s := range symbols {
		heap.Push(h, &treeNode{freq: freq[s], symbol: s, isLeaf: true})
	}

	if h.Len() == 1 {
		only := (*h)[0]
		return fromLengths(map[uint32]int{only.symbol: 1})
	}

	for h.Len() > 1 {
		a := heap.Pop(h).(*treeNode)
		b := heap.Pop(h).(*treeNode)
		parent := &treeNode{freq: a.freq + b.freq, left: a, right: b}
		heap.Push(h, parent)
	}
	root := heap.Pop(h).(*treeNode)

	lengths := map[uint32]int{}
	var walk func(n *treeNode, depth int)
	walk = func(n *treeNode, depth int) {
		if n.isLeaf {
			if depth == 0 {
				depth = 1
			}
			lengths[n.symbol] = depth
			return
		}
		walk(n.left, depth+1)
		walk(n.right, depth+1)
	}
	walk(root, 0)

	return fromLengths(lengths)
}

// fromLengths canonicalizes: sort by (length, symbol), assign codes in
// order, incrementing and left-shifting the running code whenever length
// increases — the standard canonical Huffman construction.
func fromLengths(lengths map[uint32]int) *Table {
	type sl struct {
		sym uint32
		len int
	}
	entries := make([]sl, 0, len(lengths))
	maxLen := 0
	for s, l := range lengths {
		entries = append(entries, sl{s, l})
		if l > maxLen {
			maxLen = l
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].len != entries[j].len {
			return entries[i].len < entries[j].len
		}
		return entries[i].sym < entries[j].sym
	})

	t := &Table{
		bySymbol:    map[uint32]Code{},
		firstCode:   map[int]uint64{},
		firstSymIdx: map[int]int{},
		symsByLen:   map[int][]uint32{},
		maxLen:      maxLen,
	}

	var code uint64
	prevLen := 0
	for i, e := range entries {
		if e.len != prevLen {
			code <<= uint(e.len - prevLen)
			prevLen = e.len
			t.firstCode[e.len] = code
			t.firstSymIdx[e.len] = i
		}
		t.bySymbol[e.sym] = Code{Symbol: e.sym, Len: e.len, Bits: code}
		t.symsByLen[e.len] = append(t.symsByLen[e.len], e.sym)
		code++
	}
	return t
}

// Code returns the code for symbol, ok=false if the symbol was never fit.
func (t *Table) Code(symbol uint32) (Code, bool) {
	c, ok := t.bySymbol[symbol]
	return c, ok
}

// MaxLen is the longest code length in the table, 0 if the table is empty.
func (t *Table) MaxLen() int { return t.maxLen }

// Symbols returns every symbol the table has a code for.
func (t *Table) Symbols() []uint32 {
	out := make([]uint32, 0, len(t.bySymbol))
	for s := range t.bySymbol {
		out = append(out, s)
	}
	return out
}

// BitReader is the minimal interface Decode needs from a bit source.
type BitReader interface {
	ReadBit() bool
}

// Decode reads one canonical-Huffman-coded symbol from r.
func (t *Table) Decode(r BitReader) (uint32, bool) {
	var code uint64
	for length := 1; length <= t.maxLen; length++ {
		code = code<<1 | b2u(r.ReadBit())
		first, ok := t.firstCode[length]
		if !ok {
			continue
		}
		syms := t.symsByLen[length]
		if code >= first && int(code-first) < len(syms) {
			return syms[code-first], true
		}
	}
	return 0, false
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
