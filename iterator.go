/*
Copyright © 2013 the aviso-lagrangian authors.
This file is part of aviso-lagrangian.

aviso-lagrangian is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

aviso-lagrangian is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with aviso-lagrangian.  If not, see <http://www.gnu.org/licenses/>.
*/

package lagrangian

import "math"

// Iterator emits the monotone sequence of integration timestamps from
// t0 to t1 in steps of magnitude |h|, with sign following sign(t1-t0).
// The terminal step is clamped exactly to t1.
type Iterator struct {
	t0, t1, h float64
	sign      float64
	cur       float64
	done      bool
}

// NewIterator builds an Iterator over [t0, t1] with step magnitude |h|.
// If t0 == t1, the iterator emits exactly one timestamp, t0.
func NewIterator(t0, t1, h float64) *Iterator {
	sign := 1.0
	if t1 < t0 {
		sign = -1.0
	}
	return &Iterator{t0: t0, t1: t1, h: math.Abs(h), sign: sign, cur: t0, done: t0 == t1}
}

// Done reports whether Current() already holds the terminal timestamp,
// t1. Callers loop as: process(it.Current()); for !it.Done() {
// it.Next(); process(it.Current()) }.

func (it *Iterator) Done() bool { return it.done }

// Current returns the current timestamp without advancing.
func (it *Iterator) Current() float64 { return it.cur }

// Next advances to and returns the next timestamp, clamping the final
// step exactly to t1. Calling Next after Done is a no-op that returns t1.
func (it *Iterator) Next() float64 {
	if it.done {
		return it.t1
	}
	next := it.cur + it.sign*it.h
	if (it.sign > 0 && next >= it.t1) || (it.sign < 0 && next <= it.t1) {
		it.cur = it.t1
		it.done = true
		return it.cur
	}
	it.cur = next
	return it.cur
}

// Clone returns an independent copy of it at its current position, so a
// worker can fork an iterator without disturbing another's progress.
func (it *Iterator) Clone() *Iterator {
	c := *it
	return &c
}
