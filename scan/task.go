// Package scan runs the text-analysis pipeline for one message: part
// selection and rendering, the gtube gate, script detection, normalization,
// word extraction, near-duplicate distance between alternative parts, the
// received hop chain and the message digest.
package scan

import (
	"net"

	"github.com/mailscan/mailscan/message"
	"github.com/mailscan/mailscan/received"
	"github.com/mailscan/mailscan/textpart"
)

// Actions of a verdict.
const (
	ActionNoAction = "no action"
	ActionReject   = "reject"
)

// GtubeSymbol is the zero-weight marker symbol registered when the test
// signature is found.
const GtubeSymbol = "GTUBE"

// Symbol is a named analysis result with a weight, consumed by scoring.
type Symbol struct {
	Name  string
	Score float64
}

// Task is the unit of work for one message. A task is used by a single
// goroutine; all state is exclusive to the task and discarded with it.
type Task struct {
	// Transport-observed peer. Optional; can be backfilled from the received
	// chain when absent.
	FromAddr net.IP
	Hostname string

	QueueID      string // Kept if set by the caller, otherwise the message-id.
	MessageID    string
	Subject      string
	EnvelopeFrom string // From Return-Path.
	DeliverTo    string // From Delivered-To.

	Message   *message.Message
	TextParts []*textpart.TextPart
	Received  []*received.Hop
	URLs      []string
	Addresses []string

	Skip       bool // Skip further analysis, a terminal verdict was reached.
	GtubeFound bool

	Score       float64
	Action      string
	SMTPMessage string
	Symbols     []Symbol

	// Named results for scoring, only set when computed.
	PartsDistance *float64
	TotalWords    *int

	Digest [message.DigestSize]byte
}
