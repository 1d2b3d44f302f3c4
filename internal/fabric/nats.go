// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fabric

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS is a Fabric implementation for running ranks as separate OS
// processes (or separate hosts) that share a NATS server instead of an
// in-memory hub. It follows the same subscribe/publish/request style as
// the rest of the codebase's NATS usage: a persistent subscription per
// mailbox, and request/reply for barrier coordination.
type NATS struct {
	conn      *nats.Conn
	rank      int
	worldSize int
	runID     string

	mu   sync.Mutex
	subs []*nats.Subscription

	mailboxMu sync.Mutex
	mailboxes map[string]*natsMailbox
}

// NewNATSFabric wraps an already-connected NATS connection. runID
// namespaces subjects so multiple concurrent benchmark runs on a shared
// NATS server never cross-talk.
func NewNATSFabric(conn *nats.Conn, rank, worldSize int, runID string) *NATS {
	return &NATS{
		conn:      conn,
		rank:      rank,
		worldSize: worldSize,
		runID:     runID,
		mailboxes: make(map[string]*natsMailbox),
	}
}

func (f *NATS) Rank() int      { return f.rank }
func (f *NATS) WorldSize() int { return f.worldSize }

func (f *NATS) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		_ = s.Unsubscribe()
	}
	f.subs = nil
	return nil
}

// subjectPrefix derives a deterministic subject root for a communicator
// from its sorted global rank membership, so every member process
// computes the same subject without a discovery handshake: they all start
// from the same resolved group definitions (internal/groups.Resolve runs
// identically on every rank).
func (f *NATS) subjectPrefix(globalRanks []int) string {
	s := fmt.Sprintf("parabench.%s.comm", f.runID)
	for _, r := range globalRanks {
		s += fmt.Sprintf(".%d", r)
	}
	return s
}

func (f *NATS) NewCommunicator(globalRanks []int) (Communicator, error) {
	return Communicator{ranks: globalRanks, back: f, id: subjectHash(f.subjectPrefix(globalRanks))}, nil
}

func subjectHash(s string) int {
	h := 0
	for i := 0; i < len(s); i++ {
		h = h*131 + int(s[i])
	}
	if h < 0 {
		h = -h
	}
	return h
}

type natsMailbox struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending map[int][][]byte
}

// mailboxFor subscribes lazily to this rank's inbox subject within the
// communicator, buffering by source local rank exactly like the Local
// fabric's hub does, so recv(src) can pick its sender out of the stream.
func (f *NATS) mailboxFor(subjectPrefix string, localRank int) (*natsMailbox, error) {
	key := fmt.Sprintf("%s.rank.%d", subjectPrefix, localRank)

	f.mailboxMu.Lock()
	m, ok := f.mailboxes[key]
	f.mailboxMu.Unlock()
	if ok {
		return m, nil
	}

	m = &natsMailbox{pending: make(map[int][][]byte)}
	m.cond = sync.NewCond(&m.mu)

	sub, err := f.conn.Subscribe(key, func(msg *nats.Msg) {
		env, err := decodeEnvelope(msg.Data)
		if err != nil {
			return
		}
		m.mu.Lock()
		m.pending[env.Src] = append(m.pending[env.Src], env.Payload)
		m.cond.Broadcast()
		m.mu.Unlock()
	})
	if err != nil {
		return nil, fmt.Errorf("fabric: subscribe %q: %w", key, err)
	}

	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()

	f.mailboxMu.Lock()
	f.mailboxes[key] = m
	f.mailboxMu.Unlock()
	return m, nil
}

func (f *NATS) send(c Communicator, dstLocalRank int, data []byte) error {
	prefix := f.subjectPrefix(c.ranks)
	subject := fmt.Sprintf("%s.rank.%d", prefix, dstLocalRank)
	env := encodeEnvelope(c.LocalRank(), data)
	if err := f.conn.Publish(subject, env); err != nil {
		return fmt.Errorf("fabric: publish to %q: %w", subject, err)
	}
	return nil
}

func (f *NATS) recv(c Communicator, srcLocalRank int) ([]byte, error) {
	prefix := f.subjectPrefix(c.ranks)
	m, err := f.mailboxFor(prefix, c.LocalRank())
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.pending[srcLocalRank]) == 0 {
		m.cond.Wait()
	}
	q := m.pending[srcLocalRank]
	out := q[0]
	m.pending[srcLocalRank] = q[1:]
	return out, nil
}

// barrier elects the lowest-ranked member as coordinator: every other
// member sends a request and blocks for the reply; the coordinator
// replies to each request once it has seen one from every member, then
// resets for the next barrier call.
func (f *NATS) barrier(c Communicator) error {
	prefix := f.subjectPrefix(c.ranks)
	subject := prefix + ".barrier"

	if c.LocalRank() == 0 {
		return f.coordinateBarrier(subject, c.Size())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	_, err := f.conn.RequestWithContext(ctx, subject, []byte("arrived"))
	if err != nil {
		return fmt.Errorf("fabric: barrier request: %w", err)
	}
	return nil
}

func (f *NATS) coordinateBarrier(subject string, size int) error {
	arrived := 1 // the coordinator itself
	var pendingReplies []*nats.Msg

	sub, err := f.conn.SubscribeSync(subject)
	if err != nil {
		return fmt.Errorf("fabric: barrier coordinator subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	for arrived < size {
		msg, err := sub.NextMsg(5 * time.Minute)
		if err != nil {
			return fmt.Errorf("fabric: barrier coordinator wait: %w", err)
		}
		arrived++
		pendingReplies = append(pendingReplies, msg)
	}
	for _, msg := range pendingReplies {
		_ = msg.Respond([]byte("release"))
	}
	return nil
}

// broadcast uses the communicator's fixed `<prefix>.broadcast` subject:
// every non-root member sends a request there and takes the reply as the
// payload, and the root answers one request from each other member with
// data. The subject is the same for every call on a communicator; nothing
// here tells apart requests that belong to two different broadcasts.
func (f *NATS) broadcast(c Communicator, rootLocalRank int, data []byte) ([]byte, error) {
	prefix := f.subjectPrefix(c.ranks)
	subject := prefix + ".broadcast"

	if c.LocalRank() == rootLocalRank {
		sub, err := f.conn.SubscribeSync(subject)
		if err != nil {
			return nil, fmt.Errorf("fabric: broadcast root subscribe: %w", err)
		}
		defer sub.Unsubscribe()

		need := c.Size() - 1
		for i := 0; i < need; i++ {
			msg, err := sub.NextMsg(5 * time.Minute)
			if err != nil {
				return nil, fmt.Errorf("fabric: broadcast root wait: %w", err)
			}
			if err := msg.Respond(data); err != nil {
				return nil, fmt.Errorf("fabric: broadcast root respond: %w", err)
			}
		}
		return data, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	reply, err := f.conn.RequestWithContext(ctx, subject, []byte("ready"))
	if err != nil {
		return nil, fmt.Errorf("fabric: broadcast request: %w", err)
	}
	return reply.Data, nil
}
