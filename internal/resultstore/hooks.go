// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package resultstore

import (
	"context"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
)

type ctxKey string

const beginKey ctxKey = "begin"

// hooks satisfies sqlhooks.Hooks, logging every query parabench runs
// against its own result database at debug level.
type hooks struct{}

func (h *hooks) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	cclog.Debugf("resultstore: query %s %q", query, args)
	return context.WithValue(ctx, beginKey, time.Now()), nil
}

func (h *hooks) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	if begin, ok := ctx.Value(beginKey).(time.Time); ok {
		cclog.Debugf("resultstore: took %s", time.Since(begin))
	}
	return ctx, nil
}
