// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package timing

import "fmt"

var iecUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}

// FormatThroughput renders bytesPerSecond using binary IEC prefixes,
// dividing by 1024 until the value is below 1024, with two fractional
// digits.
func FormatThroughput(bytesPerSecond float64) string {
	v := bytesPerSecond
	unit := 0
	for v >= 1024 && unit < len(iecUnits)-1 {
		v /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s/s", v, iecUnits[unit])
}
