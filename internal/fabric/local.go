// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fabric

import (
	"fmt"
	"sync"
)

// Local is a Fabric implementation for running every rank as a goroutine
// within a single OS process: barriers, broadcasts and point-to-point
// transfers all go through an in-memory hub shared by every rank's Local
// handle instead of a network transport.
type Local struct {
	rank      int
	worldSize int
	hub       *localHub
}

// NewLocalFabric builds one Local handle per rank, all sharing the same
// hub, so every rank's view of a communicator is backed by the same
// barrier/broadcast/mailbox state.
func NewLocalFabric(worldSize int) []*Local {
	hub := newLocalHub()
	out := make([]*Local, worldSize)
	for r := 0; r < worldSize; r++ {
		out[r] = &Local{rank: r, worldSize: worldSize, hub: hub}
	}
	return out
}

func (f *Local) Rank() int      { return f.rank }
func (f *Local) WorldSize() int { return f.worldSize }
func (f *Local) Close() error   { return nil }

func (f *Local) NewCommunicator(globalRanks []int) (Communicator, error) {
	id := f.hub.commID(globalRanks)
	return Communicator{id: id, ranks: globalRanks, back: f}, nil
}

func (f *Local) barrier(c Communicator) error {
	return f.hub.barrier(c.id, c.Size())
}

func (f *Local) broadcast(c Communicator, rootLocalRank int, data []byte) ([]byte, error) {
	if rootLocalRank < 0 || rootLocalRank >= c.Size() {
		return nil, fmt.Errorf("fabric: broadcast root %d out of range [0,%d)", rootLocalRank, c.Size())
	}
	out := f.hub.broadcast(c.id, c.Size(), rootLocalRank == c.LocalRank(), data)
	if err := f.barrier(c); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *Local) send(c Communicator, dstLocalRank int, data []byte) error {
	if dstLocalRank < 0 || dstLocalRank >= c.Size() {
		return fmt.Errorf("fabric: send dst %d out of range [0,%d)", dstLocalRank, c.Size())
	}
	f.hub.send(c.id, dstLocalRank, c.LocalRank(), data)
	return nil
}

func (f *Local) recv(c Communicator, srcLocalRank int) ([]byte, error) {
	if srcLocalRank < 0 || srcLocalRank >= c.Size() {
		return nil, fmt.Errorf("fabric: recv src %d out of range [0,%d)", srcLocalRank, c.Size())
	}
	return f.hub.recv(c.id, c.LocalRank(), srcLocalRank), nil
}

// localHub owns the shared state (barrier counters, broadcast slots,
// mailboxes) that every rank's Local handle reaches into. One hub per
// simulated world.
type localHub struct {
	mu        sync.Mutex
	nextID    int
	ids       map[string]int
	barriers  map[int]*barrierState
	bcasts    map[int]*bcastState
	mailboxes map[mailboxKey]*mailbox
}

func newLocalHub() *localHub {
	return &localHub{
		ids:       make(map[string]int),
		barriers:  make(map[int]*barrierState),
		bcasts:    make(map[int]*bcastState),
		mailboxes: make(map[mailboxKey]*mailbox),
	}
}

// commID interns ids by member set: every rank building a communicator
// over the same global ranks gets the same id, so their barrier,
// broadcast and mailbox state actually meet. Which rank triggers the
// interning first is irrelevant — the id sticks to the membership key.
func (h *localHub) commID(members []int) int {
	key := fmt.Sprint(members)
	h.mu.Lock()
	defer h.mu.Unlock()
	if id, ok := h.ids[key]; ok {
		return id
	}
	id := h.nextID
	h.nextID++
	h.ids[key] = id
	h.barriers[id] = &barrierState{}
	return id
}

type barrierState struct {
	mu         sync.Mutex
	cond       *sync.Cond
	count      int
	generation int
}

func (h *localHub) barrier(commID, size int) error {
	h.mu.Lock()
	b, ok := h.barriers[commID]
	if !ok {
		b = &barrierState{}
		h.barriers[commID] = b
	}
	h.mu.Unlock()

	b.mu.Lock()
	if b.cond == nil {
		b.cond = sync.NewCond(&b.mu)
	}
	gen := b.generation
	b.count++
	if b.count == size {
		b.count = 0
		b.generation++
		b.cond.Broadcast()
	} else {
		for b.generation == gen {
			b.cond.Wait()
		}
	}
	b.mu.Unlock()
	return nil
}

type bcastState struct {
	mu    sync.Mutex
	cond  *sync.Cond
	ready bool
	data  []byte
	seen  int
	size  int
}

func (h *localHub) broadcast(commID, size int, isRoot bool, data []byte) []byte {
	h.mu.Lock()
	b, ok := h.bcasts[commID]
	if !ok {
		b = &bcastState{}
		h.bcasts[commID] = b
	}
	h.mu.Unlock()

	b.mu.Lock()
	if b.cond == nil {
		b.cond = sync.NewCond(&b.mu)
	}
	if isRoot {
		b.data = data
		b.ready = true
		b.cond.Broadcast()
	} else {
		for !b.ready {
			b.cond.Wait()
		}
	}
	out := b.data
	b.seen++
	if b.seen == size {
		b.ready = false
		b.data = nil
		b.seen = 0
	}
	b.mu.Unlock()
	return out
}

type mailboxKey struct {
	comm     int
	dstLocal int
}

type mailbox struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending map[int][][]byte // srcLocalRank -> queued payloads, FIFO per src
}

func (h *localHub) mailboxFor(commID, dstLocalRank int) *mailbox {
	key := mailboxKey{comm: commID, dstLocal: dstLocalRank}
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.mailboxes[key]
	if !ok {
		m = &mailbox{pending: make(map[int][][]byte)}
		m.cond = sync.NewCond(&m.mu)
		h.mailboxes[key] = m
	}
	return m
}

func (h *localHub) send(commID, dstLocalRank, srcLocalRank int, data []byte) {
	m := h.mailboxFor(commID, dstLocalRank)
	m.mu.Lock()
	cp := append([]byte(nil), data...)
	m.pending[srcLocalRank] = append(m.pending[srcLocalRank], cp)
	m.cond.Broadcast()
	m.mu.Unlock()
}

func (h *localHub) recv(commID, dstLocalRank, srcLocalRank int) []byte {
	m := h.mailboxFor(commID, dstLocalRank)
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.pending[srcLocalRank]) == 0 {
		m.cond.Wait()
	}
	q := m.pending[srcLocalRank]
	out := q[0]
	m.pending[srcLocalRank] = q[1:]
	return out
}
