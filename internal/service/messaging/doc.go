// Package messaging implements conversations between candidates and
// employers. A conversation has two or more participants and may be tied
// to a job; only participants can read or post to it.
package messaging
