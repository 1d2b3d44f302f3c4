// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fabric

import (
	"sync"
	"testing"
	"time"
)

func worldComms(t *testing.T, fabs []*Local) []Communicator {
	t.Helper()
	ranks := make([]int, len(fabs))
	for i := range ranks {
		ranks[i] = i
	}
	comms := make([]Communicator, len(fabs))
	for i, f := range fabs {
		c, err := f.NewCommunicator(ranks)
		if err != nil {
			t.Fatalf("NewCommunicator: %v", err)
		}
		comms[i] = c
	}
	return comms
}

func TestCommIDInternedByMembership(t *testing.T) {
	fabs := NewLocalFabric(3)

	c0, _ := fabs[0].NewCommunicator([]int{0, 1, 2})
	c1, _ := fabs[1].NewCommunicator([]int{0, 1, 2})
	if c0.id != c1.id {
		t.Fatalf("same member set resolved to different ids (%d vs %d)", c0.id, c1.id)
	}

	sub, _ := fabs[0].NewCommunicator([]int{0, 1})
	if sub.id == c0.id {
		t.Fatal("different member sets must not share an id")
	}
}

func TestBarrierReleasesAllMembers(t *testing.T) {
	fabs := NewLocalFabric(3)
	comms := worldComms(t, fabs)

	var wg sync.WaitGroup
	released := make(chan int, 3)
	for i := range fabs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := comms[i].Barrier(); err != nil {
				t.Errorf("rank %d: barrier: %v", i, err)
				return
			}
			released <- i
		}(i)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("barrier did not release all members")
	}
	if len(released) != 3 {
		t.Fatalf("released %d members, want 3", len(released))
	}
}

func TestBroadcastDeliversRootPayload(t *testing.T) {
	fabs := NewLocalFabric(3)
	comms := worldComms(t, fabs)

	payload := []byte("from-root")
	results := make([][]byte, 3)

	var wg sync.WaitGroup
	for i := range fabs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var data []byte
			if i == 0 {
				data = payload
			}
			out, err := comms[i].Broadcast(0, data)
			if err != nil {
				t.Errorf("rank %d: broadcast: %v", i, err)
				return
			}
			results[i] = out
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if string(got) != "from-root" {
			t.Fatalf("rank %d received %q, want from-root", i, got)
		}
	}
}

func TestSendRecvIsFIFOPerSource(t *testing.T) {
	fabs := NewLocalFabric(2)
	comms := worldComms(t, fabs)

	if err := comms[1].Send(0, []byte("first")); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := comms[1].Send(0, []byte("second")); err != nil {
		t.Fatalf("send: %v", err)
	}

	got, err := comms[0].Recv(1)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if string(got) != "first" {
		t.Fatalf("got %q, want first", got)
	}
	got, err = comms[0].Recv(1)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if string(got) != "second" {
		t.Fatalf("got %q, want second", got)
	}
}

func TestSelfCommunicatorCollectivesAreNoOps(t *testing.T) {
	c := SelfCommunicator(7)
	if c.Size() != 1 {
		t.Fatalf("size = %d, want 1", c.Size())
	}
	if c.LocalRank() != 0 {
		t.Fatalf("local rank = %d, want 0", c.LocalRank())
	}
	if err := c.Barrier(); err != nil {
		t.Fatalf("barrier on self communicator: %v", err)
	}
	out, err := c.Broadcast(0, []byte("x"))
	if err != nil || string(out) != "x" {
		t.Fatalf("broadcast on self communicator: %q/%v", out, err)
	}
	if err := c.Send(0, nil); err == nil {
		t.Fatal("send on a transportless communicator should error")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	raw := encodeEnvelope(5, []byte("payload"))
	env, err := decodeEnvelope(raw)
	if err != nil {
		t.Fatalf("decodeEnvelope: %v", err)
	}
	if env.Src != 5 || string(env.Payload) != "payload" {
		t.Fatalf("got %+v", env)
	}

	if _, err := decodeEnvelope([]byte("shrt")); err == nil {
		t.Fatal("expected an error for a truncated envelope")
	}
}
