// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package expr

import (
	"strconv"
	"strings"

	"github.com/ClusterCockpit/parabench/internal/value"
)

func isNameByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// Substitute implements the `$name` / `$$rank`/`$$rand`/`$$crand` /
// `$$env(VAR)` / `\$` template language. A non-Ok status means an unknown
// variable or unset environment variable was referenced, which callers
// must treat as fatal.
//
// Expansions are re-scanned for further `$` references before being
// spliced into the output: each expansion is itself fully substituted
// before its caller resumes scanning, so recursion depth is bounded by
// template nesting depth, not input length.
func (ev *Evaluator) Substitute(s string) (string, Status) {
	var out strings.Builder
	i := 0
	for i < len(s) {
		switch {
		case s[i] == '\\' && i+1 < len(s) && s[i+1] == '$':
			out.WriteByte('$')
			i += 2

		case s[i] == '$' && i+1 < len(s) && s[i+1] == '$':
			rest := s[i+2:]
			if strings.HasPrefix(rest, "env(") {
				close := strings.IndexByte(rest, ')')
				if close < 0 {
					return "", InvalidExpression
				}
				varName := rest[len("env(") : close]
				val, ok := ev.env.Getenv(varName)
				if !ok {
					return "", InvalidVariable
				}
				expanded, st := ev.Substitute(val)
				if st != Ok {
					return "", st
				}
				out.WriteString(expanded)
				i += 2 + close + 1
				continue
			}

			j := 0
			for j < len(rest) && isNameByte(rest[j]) {
				j++
			}
			name := rest[:j]
			iv, found, st := ev.internalInt("$" + name)
			if !found || st != Ok {
				return "", InvalidVariable
			}
			out.WriteString(strconv.FormatInt(iv, 10))
			i += 2 + j

		case s[i] == '$':
			rest := s[i+1:]
			j := 0
			for j < len(rest) && isNameByte(rest[j]) {
				j++
			}
			name := rest[:j]
			v, ok := ev.store.Lookup(name)
			if !ok {
				return "", InvalidVariable
			}
			var text string
			switch v.Tag {
			case value.String:
				text = v.Str
			case value.Int:
				text = strconv.FormatInt(v.Int, 10)
			default:
				return "", InvalidVariable
			}
			expanded, st := ev.Substitute(text)
			if st != Ok {
				return "", st
			}
			out.WriteString(expanded)
			i += 1 + j

		default:
			out.WriteByte(s[i])
			i++
		}
	}
	return out.String(), Ok
}
