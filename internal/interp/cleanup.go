// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package interp

// cleanup tracks every path this run created via create/mkdir/fcreat/
// pfopen/pwrite, or via write/append to a file that did not exist before,
// so the CLI's `-c` flag can remove them all on exit instead of leaving
// benchmark artifacts behind.
type cleanup struct {
	files []string
	dirs  []string
}

func newCleanup() *cleanup { return &cleanup{} }

func (c *cleanup) AddFile(path string) {
	for _, p := range c.files {
		if p == path {
			return
		}
	}
	c.files = append(c.files, path)
}

func (c *cleanup) AddDir(path string) {
	for _, p := range c.dirs {
		if p == path {
			return
		}
	}
	c.dirs = append(c.dirs, path)
}

func (c *cleanup) RemoveFile(path string) {
	c.files = removeString(c.files, path)
}

func (c *cleanup) RemoveDir(path string) {
	c.dirs = removeString(c.dirs, path)
}

func (c *cleanup) RenameFile(oldPath, newPath string) {
	for i, p := range c.files {
		if p == oldPath {
			c.files[i] = newPath
			return
		}
	}
}

func removeString(s []string, v string) []string {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// Files and Dirs return the paths still tracked for cleanup, innermost
// (most recently created) first so files are removed before their parent
// directories.
func (c *cleanup) Files() []string {
	out := make([]string, len(c.files))
	for i, p := range c.files {
		out[len(c.files)-1-i] = p
	}
	return out
}

func (c *cleanup) Dirs() []string {
	out := make([]string, len(c.dirs))
	for i, p := range c.dirs {
		out[len(c.dirs)-1-i] = p
	}
	return out
}
