// Copyright (c) 2023 cheng-zhongliang. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reactor

import "time"

// NewTimer creates a one-shot deadline event. Arm it with base.AddEvent(ev,
// d); it fires cb once, then is removed automatically.
func NewTimer(cb func(fd int, res uint32, arg interface{}), arg interface{}) *Event {
	return acquire(-1, EvTimeout, cb, arg)
}

// NewTicker creates a self-rearming deadline event: cb fires every d until
// base.DelEvent is called on it.
func NewTicker(cb func(fd int, res uint32, arg interface{}), arg interface{}) *Event {
	return acquire(-1, EvTimeout|EvPersist, cb, arg)
}

// Since reports how long remains until ev's deadline, negative if past due.
func Since(b *Base, ev *Event) time.Duration {
	return time.Duration(b.Deadline(ev)-time.Now().UnixMilli()) * time.Millisecond
}
