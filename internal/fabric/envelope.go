// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fabric

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// envelope tags a point-to-point payload with its sender's local rank so
// the receiver's mailbox can sort messages by source without a separate
// subject per (src,dst) pair.
type envelope struct {
	Src     int
	Payload []byte
}

func encodeEnvelope(src int, payload []byte) []byte {
	var buf bytes.Buffer
	var srcBuf [8]byte
	binary.BigEndian.PutUint64(srcBuf[:], uint64(src))
	buf.Write(srcBuf[:])
	buf.Write(payload)
	return buf.Bytes()
}

func decodeEnvelope(raw []byte) (envelope, error) {
	if len(raw) < 8 {
		return envelope{}, fmt.Errorf("fabric: envelope too short (%d bytes)", len(raw))
	}
	src := int(binary.BigEndian.Uint64(raw[:8]))
	payload := append([]byte(nil), raw[8:]...)
	return envelope{Src: src, Payload: payload}, nil
}
