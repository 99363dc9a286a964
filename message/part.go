// Package message turns a raw mail message into the structural part model
// consumed by text analysis: an ordered list of MIME parts with decoded
// bodies, per-part content digests and an ordered header list.
//
// The MIME splitting itself is done by github.com/emersion/go-message; this
// package adapts its entity tree and adds the pieces analysis needs: parent
// relations, blake2b content digests, the mbox leading-"From " workaround and
// the raw-input fallback for non-MIME input.
package message

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	gomessage "github.com/emersion/go-message"
	"golang.org/x/crypto/blake2b"

	"github.com/mailscan/mailscan/mlog"
)

// ErrBadMessage is returned when the input cannot be parsed as a MIME
// message. Callers may fall back to FromData if raw input is allowed.
var ErrBadMessage = errors.New("cannot parse message")

// DigestSize is the size of per-part and whole-message content digests.
const DigestSize = blake2b.Size256

// Part is one structurally-parsed segment of a message.
type Part struct {
	MediaType         string            // From Content-Type, upper case, e.g. "TEXT". Empty content-type is treated as TEXT/PLAIN.
	MediaSubType      string            // From Content-Type, upper case, e.g. "HTML".
	ContentTypeParams map[string]string // Lower-case keys, e.g. "charset".
	Disposition       string            // From Content-Disposition, upper case, e.g. "ATTACHMENT". Empty if absent.
	Data              []byte            // Transfer-decoded body. Empty for multipart containers.
	Converted         bool              // Whether the parser already converted Data to UTF-8 from a declared charset.
	Digest            [DigestSize]byte  // blake2b-256 of Data.
	Parent            *Part             // Enclosing multipart, nil for the root.
}

// IsText reports whether the part's declared content type is text.
func (p *Part) IsText() bool {
	return p.MediaType == "TEXT"
}

// IsAttachment reports whether the part has an attachment disposition.
func (p *Part) IsAttachment() bool {
	return p.Disposition == "ATTACHMENT"
}

// Message is the parsed structural form of one raw message.
type Message struct {
	Headers Headers // Top-level headers, in message order, raw values.
	Parts   []*Part // All parts in discovery order (depth-first).
}

// Parse splits raw message data into its MIME parts. Leading whitespace and a
// leading mbox "From " line are skipped first; some MTAs hand us messages in
// mailbox format. On parse failure ErrBadMessage is wrapped in the returned
// error and the caller decides whether raw-input fallback applies.
func Parse(log *mlog.Log, data []byte) (*Message, error) {
	data = skipMboxFrom(log, skipSpace(data))

	e, err := gomessage.Read(bytes.NewReader(data))
	if err != nil && !gomessage.IsUnknownCharset(err) {
		return nil, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	hdrs, _ := ParseHeaders(data)
	m := &Message{Headers: hdrs}
	if err := m.walk(log, e, nil, gomessage.IsUnknownCharset(err)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	return m, nil
}

// walk adds the entity and its descendants to the part list. charsetRaw means
// the parser flagged an unknown charset for this entity and its body bytes
// are still in the original charset.
func (m *Message) walk(log *mlog.Log, e *gomessage.Entity, parent *Part, charsetRaw bool) error {
	p := &Part{Parent: parent}

	ct, params, err := e.Header.ContentType()
	if err != nil || ct == "" {
		if err != nil {
			log.Debugx("parsing content-type, assuming text/plain", err)
		}
		ct = "text/plain"
	}
	t, st, _ := strings.Cut(ct, "/")
	p.MediaType = strings.ToUpper(t)
	p.MediaSubType = strings.ToUpper(st)
	p.ContentTypeParams = params
	if disp, _, err := e.Header.ContentDisposition(); err == nil {
		p.Disposition = strings.ToUpper(disp)
	}
	m.Parts = append(m.Parts, p)

	if mr := e.MultipartReader(); mr != nil {
		for {
			sub, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			subRaw := false
			if err != nil {
				if !gomessage.IsUnknownCharset(err) {
					return err
				}
				subRaw = true
			}
			if err := m.walk(log, sub, p, subRaw); err != nil {
				return err
			}
		}
	} else {
		buf, err := io.ReadAll(e.Body)
		if err != nil {
			// Transfer-decoding failure degrades to whatever we got.
			log.Debugx("reading part body", err)
		}
		p.Data = buf
		p.Converted = !charsetRaw
	}
	p.Digest = blake2b.Sum256(p.Data)
	return nil
}

// FromData constructs a single-part message from data that could not (or
// should not) be parsed as MIME. The whole input becomes one text/plain part.
func FromData(log *mlog.Log, data []byte) *Message {
	log.Debug("constructing fake mime part for raw input", mlog.Field("size", len(data)))
	hdrs, _ := ParseHeaders(data)
	p := &Part{
		MediaType:    "TEXT",
		MediaSubType: "PLAIN",
		Data:         data,
		Digest:       blake2b.Sum256(data),
	}
	return &Message{Headers: hdrs, Parts: []*Part{p}}
}

// MessageID returns the message-id without enclosing angle brackets, or
// "undef" if the header is absent.
func (m *Message) MessageID() string {
	v := m.Headers.Value("Message-ID")
	if v == "" {
		v = m.Headers.Value("Message-Id")
	}
	if v == "" {
		return "undef"
	}
	v = strings.TrimPrefix(v, "<")
	v = strings.TrimSuffix(v, ">")
	return v
}

// Subject returns the decoded Subject header, or the empty string.
func (m *Message) Subject() string {
	v := m.Headers.Value("Subject")
	if s, err := wordDecoder.DecodeHeader(v); err == nil {
		return s
	}
	return v
}

func skipSpace(data []byte) []byte {
	return bytes.TrimLeft(data, " \t\r\n")
}

// skipMboxFrom works around MTAs that feed us messages in mailbox format,
// with a leading "From xxx@example.org ..." line.
func skipMboxFrom(log *mlog.Log, data []byte) []byte {
	if !bytes.HasPrefix(data, []byte("From ")) {
		return data
	}
	log.Info("mailbox input detected, enabling workaround")
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return data
	}
	return skipSpace(data[i+1:])
}
