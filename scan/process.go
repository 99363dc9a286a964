package scan

import (
	"context"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/blake2b"

	"github.com/mailscan/mailscan/config"
	"github.com/mailscan/mailscan/htmltext"
	"github.com/mailscan/mailscan/message"
	"github.com/mailscan/mailscan/metrics"
	"github.com/mailscan/mailscan/mlog"
	"github.com/mailscan/mailscan/received"
	"github.com/mailscan/mailscan/stem"
	"github.com/mailscan/mailscan/textpart"
)

var xlog = mlog.New("scan")

// Process analyzes one raw message into the task. The task's FromAddr,
// Hostname and QueueID may be set by the caller beforehand.
//
// The only fatal outcome is a message that cannot be parsed into MIME
// structure while raw-input fallback is disallowed; every analysis sub-stage
// degrades in place instead of failing the task.
func Process(ctx context.Context, task *Task, msg []byte, cfg config.Config) error {
	log := xlog.WithContext(ctx)

	m, err := message.Parse(log, msg)
	if err != nil {
		if !cfg.AllowRawInput {
			return fmt.Errorf("parsing mime structure: %w", err)
		}
		log.Infox("cannot parse mime structure, falling back to raw input", err)
		m = message.FromData(log, msg)
	}
	task.Message = m
	task.MessageID = m.MessageID()
	if task.QueueID == "" {
		task.QueueID = task.MessageID
	}
	task.Subject = m.Subject()
	task.Action = ActionNoAction

	for _, p := range m.Parts {
		if p.IsText() {
			processTextPart(log, task, p, cfg)
		}
	}

	raws := m.Headers.Values("Received", false)
	task.Received, task.FromAddr, task.Hostname = received.BuildChain(log, raws, task.FromAddr, task.Hostname, cfg.IgnoreReceived)

	if task.EnvelopeFrom == "" {
		task.EnvelopeFrom = m.Headers.Value("Return-Path")
	}
	if task.DeliverTo == "" {
		task.DeliverTo = m.Headers.Value("Delivered-To")
	}

	if !task.Skip {
		partsDistance(log, task)
	}

	h, _ := blake2b.New256(nil)
	for _, p := range m.Parts {
		h.Write(p.Digest[:])
	}
	h.Sum(task.Digest[:0])

	log.Info("loaded message",
		mlog.Field("msgid", task.MessageID),
		mlog.Field("queueid", task.QueueID),
		mlog.Field("size", len(msg)),
		mlog.Field("checksum", fmt.Sprintf("%x", task.Digest)))
	return nil
}

// processTextPart selects one text-bearing MIME part, renders/converts its
// content, runs the gtube gate and the per-part analysis stages. Every
// created text part, empty or not, is appended to the task's list so the
// list stays in positional correspondence with the MIME structure.
func processTextPart(log *mlog.Log, task *Task, p *message.Part, cfg config.Config) {
	if p.IsAttachment() && !cfg.CheckTextAttachments {
		log.Debug("skipping attachment for checking as text part")
		return
	}

	tp := &textpart.TextPart{Part: p}
	switch p.MediaSubType {
	case "HTML", "XHTML":
		tp.HTML = true
		metrics.TextPartInc("html")
		if len(p.Data) == 0 {
			tp.Empty = true
			task.TextParts = append(task.TextParts, tp)
			return
		}
		buf, isUTF8 := convert(log, p)
		res := htmltext.Render(buf)
		tp.Content = res.Text
		tp.Exceptions = res.Exceptions
		tp.Balanced = res.Balanced
		tp.UTF8 = isUTF8
		task.URLs = append(task.URLs, res.URLs...)
		task.Addresses = append(task.Addresses, res.Addresses...)
		if len(tp.Content) == 0 {
			tp.Empty = true
		}
		task.TextParts = append(task.TextParts, tp)
	default:
		metrics.TextPartInc("plain")
		if len(p.Data) == 0 {
			tp.Empty = true
			task.TextParts = append(task.TextParts, tp)
			return
		}
		tp.Content, tp.UTF8 = convert(log, p)
		if len(tp.Content) == 0 {
			tp.Empty = true
		}
		task.TextParts = append(task.TextParts, tp)
	}

	if textpart.Gtube(tp) {
		log.Info("gtube pattern found in part", mlog.Field("size", len(tp.Content)))
		metrics.GtubeInc()
		task.Skip = true
		task.GtubeFound = true
		task.Score = cfg.RejectScore
		task.Action = ActionReject
		task.SMTPMessage = "Gtube pattern"
		task.Symbols = append(task.Symbols, Symbol{GtubeSymbol, 0})
		return
	}
	if task.Skip || tp.Empty {
		return
	}

	textpart.DetectScript(tp)
	textpart.Normalize(tp)

	var stemmer textpart.Stemmer
	if tp.Language != "" && tp.UTF8 {
		if s := stem.For(tp.Language); s != nil {
			stemmer = s
		} else {
			log.Debug("no stemmer for language", mlog.Field("language", tp.Language))
		}
	}
	textpart.ExtractWords(log, tp, stemmer)
}

// convert returns the part body as renderer/tokenizer input, converting from
// the declared charset unless the structural parser already did.
func convert(log *mlog.Log, p *message.Part) ([]byte, bool) {
	if p.Converted {
		return p.Data, utf8.Valid(p.Data)
	}
	return message.DecodeCharset(log, p.ContentTypeParams["charset"], p.Data)
}

// partsDistance computes the near-duplicate distance when the message has
// exactly two non-empty text parts that are siblings under a
// multipart/alternative parent.
func partsDistance(log *mlog.Log, task *Task) {
	if len(task.TextParts) != 2 {
		return
	}
	p1 := task.TextParts[0]
	p2 := task.TextParts[1]

	parent := p1.Part.Parent
	if parent == nil || parent != p2.Part.Parent {
		log.Debug("message contains two text parts but they are in different multiparts")
		metrics.DistanceInc("skipped")
		return
	}
	if parent.MediaSubType != "ALTERNATIVE" {
		metrics.DistanceInc("skipped")
		return
	}
	if p1.Empty || p2.Empty || len(p1.Hashes) == 0 || len(p2.Hashes) == 0 {
		metrics.DistanceInc("skipped")
		return
	}

	tw := len(p1.Hashes) + len(p2.Hashes)
	dw := textpart.WordsLevenshtein(log, p1.Hashes, p2.Hashes)
	diff := float64(dw) / float64(tw)
	log.Debug("got difference between text parts",
		mlog.Field("different", dw),
		mlog.Field("total", tw),
		mlog.Field("diff", diff))

	task.PartsDistance = &diff
	task.TotalWords = &tw
	metrics.DistanceInc("computed")
}
