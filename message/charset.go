package message

import (
	"fmt"
	"io"
	"mime"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/ianaindex"

	"github.com/mailscan/mailscan/metrics"
	"github.com/mailscan/mailscan/mlog"
)

// DecodeCharset converts buf from the named charset to UTF-8. The second
// return value tells whether the result is valid UTF-8. Conversion failure is
// never an error: the raw bytes are kept and the part is treated as non-UTF-8
// downstream.
func DecodeCharset(log *mlog.Log, charset string, buf []byte) ([]byte, bool) {
	switch strings.ToLower(charset) {
	case "", "us-ascii", "utf-8":
		return buf, utf8.Valid(buf)
	}
	enc, _ := ianaindex.MIME.Encoding(charset)
	if enc == nil {
		enc, _ = ianaindex.IANA.Encoding(charset)
	}
	// todo: ianaindex doesn't know all encodings, e.g. gb2312.
	if enc == nil {
		log.Debug("unknown charset, keeping raw bytes", mlog.Field("charset", charset))
		metrics.DegradeInc("charset")
		return buf, false
	}
	out, err := enc.NewDecoder().Bytes(buf)
	if err != nil {
		log.Debugx("charset conversion, keeping raw bytes", err, mlog.Field("charset", charset))
		metrics.DegradeInc("charset")
		return buf, false
	}
	return out, utf8.Valid(out)
}

// wordDecoder decodes q/b-encoded words in headers such as Subject, with
// charsets resolved the same way as body conversion.
var wordDecoder = mime.WordDecoder{
	CharsetReader: func(charset string, r io.Reader) (io.Reader, error) {
		switch strings.ToLower(charset) {
		case "", "us-ascii", "utf-8":
			return r, nil
		}
		enc, _ := ianaindex.MIME.Encoding(charset)
		if enc == nil {
			enc, _ = ianaindex.IANA.Encoding(charset)
		}
		if enc == nil {
			return r, fmt.Errorf("unknown charset %q", charset)
		}
		return enc.NewDecoder().Reader(r), nil
	},
}
