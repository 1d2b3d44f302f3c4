// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package fabric abstracts the collective messaging primitives groups and
// collective I/O statements need — barrier, broadcast, point-to-point
// send/recv — behind a small interface, so the interpreter can run against
// an in-process simulation for a single benchmark process or against a
// NATS-backed transport when ranks are separate OS processes.
package fabric

import "fmt"

// Fabric creates Communicators scoped to a subset of the world's ranks and
// knows this process's own rank within the world.
type Fabric interface {
	Rank() int
	WorldSize() int

	// NewCommunicator builds a Communicator over the given global ranks
	// (ascending, deduplicated). The caller's own rank need not be a
	// member; the returned Communicator is backed by this fabric either
	// way. groups.Resolve hands non-member ranks a SelfCommunicator
	// instead of calling this.
	NewCommunicator(globalRanks []int) (Communicator, error)

	Close() error

	barrier(c Communicator) error
	broadcast(c Communicator, rootLocalRank int, data []byte) ([]byte, error)
	send(c Communicator, dstLocalRank int, data []byte) error
	recv(c Communicator, srcLocalRank int) ([]byte, error)
}

// Communicator is a handle to a resolved collective scope: an ordered set
// of global ranks plus the Fabric that can carry operations over them.
// The zero value is a communicator with no members and no backing fabric;
// every collective call on it is a no-op that returns immediately.
type Communicator struct {
	id    int
	ranks []int
	back  Fabric
}

// SelfCommunicator is the placeholder used for ranks that did not resolve
// into a named group: a degenerate one-member communicator with no
// backing fabric, so master/barrier/broadcast/collective I/O on it are
// harmless no-ops rather than requiring special-casing at every call site.
func SelfCommunicator(globalRank int) Communicator {
	return Communicator{ranks: []int{globalRank}}
}

func (c Communicator) Size() int { return len(c.ranks) }

// GlobalRanks returns the member ranks in ascending order.
func (c Communicator) GlobalRanks() []int { return c.ranks }

// LocalRank returns this process's position within the communicator, or
// -1 if the fabric's own rank is not a member. A communicator with no
// backing fabric (the zero value, or a SelfCommunicator) reports 0.
func (c Communicator) LocalRank() int {
	if c.back == nil {
		return 0
	}
	me := c.back.Rank()
	for i, r := range c.ranks {
		if r == me {
			return i
		}
	}
	return -1
}

func (c Communicator) Barrier() error {
	if c.back == nil || c.Size() <= 1 {
		return nil
	}
	return c.back.barrier(c)
}

// Broadcast sends data from rootLocalRank to every member; all members
// (including root) receive the return value.
func (c Communicator) Broadcast(rootLocalRank int, data []byte) ([]byte, error) {
	if c.back == nil || c.Size() <= 1 {
		return data, nil
	}
	return c.back.broadcast(c, rootLocalRank, data)
}

// Send delivers data to dstLocalRank. Blocks until the fabric has accepted
// the message for delivery.
func (c Communicator) Send(dstLocalRank int, data []byte) error {
	if c.back == nil {
		return fmt.Errorf("fabric: send on a communicator with no backing transport")
	}
	return c.back.send(c, dstLocalRank, data)
}

// Recv blocks until a message from srcLocalRank is available.
func (c Communicator) Recv(srcLocalRank int) ([]byte, error) {
	if c.back == nil {
		return nil, fmt.Errorf("fabric: recv on a communicator with no backing transport")
	}
	return c.back.recv(c, srcLocalRank)
}
