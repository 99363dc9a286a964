// Package received parses Received headers into a structured hop chain, and
// reconciles the chain against the transport-observed peer address: the hop
// closest to us is replaced by a synthetic one when its claimed origin does
// not match the connection, and conversely the peer address can be
// backfilled from the chain when the transport did not supply one.
package received

import (
	"net"
	"strings"

	"github.com/mailscan/mailscan/metrics"
)

// Hop is one parsed Received header. Header values are free-form in the
// wild; parsing never fails, unrecognized fields are simply left unset.
type Hop struct {
	FromHostname string // Hostname the sending system claimed, first word of the from clause.
	FromIP       string // IP literal the sending system claimed, if the from clause was an address literal.
	RealHostname string // Hostname observed by the receiving system, from the comment after the from clause.
	RealIP       string // IP observed by the receiving system.
	ByHostname   string
	Addr         net.IP // Parsed form of RealIP (FromIP as fallback), used for comparison with the transport peer.
	Synthetic    bool   // Inserted by chain correction, never set on a parsed hop.
}

// token is either a word or a parenthesized comment from a Received value.
type token struct {
	text    string
	comment bool
}

func lex(raw string) []token {
	var toks []token
	i := 0
	for i < len(raw) {
		c := raw[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			depth := 0
			j := i
			for ; j < len(raw); j++ {
				if raw[j] == '(' {
					depth++
				} else if raw[j] == ')' {
					depth--
					if depth == 0 {
						break
					}
				}
			}
			end := j
			if end >= len(raw) {
				end = len(raw)
				toks = append(toks, token{strings.TrimSpace(raw[i+1:]), true})
			} else {
				toks = append(toks, token{strings.TrimSpace(raw[i+1 : end]), true})
			}
			i = end + 1
		default:
			j := i
			for j < len(raw) && raw[j] != ' ' && raw[j] != '\t' && raw[j] != '(' {
				j++
			}
			toks = append(toks, token{raw[i:j], false})
			i = j
		}
	}
	return toks
}

// parseIPLiteral parses "[1.2.3.4]", "[IPv6:...]", or a bare IP.
func parseIPLiteral(s string) (string, net.IP) {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	s = strings.TrimPrefix(s, "IPv6:")
	s = strings.TrimSuffix(s, ";")
	if ip := net.ParseIP(s); ip != nil {
		return s, ip
	}
	return "", nil
}

func looksLikeHostname(s string) bool {
	if s == "" || strings.ContainsAny(s, "=[]") {
		return false
	}
	if _, ip := parseIPLiteral(s); ip != nil {
		return false
	}
	return strings.Contains(s, ".") || !strings.ContainsAny(s, ":;")
}

// ParseHop parses one raw Received header value.
func ParseHop(raw string) *Hop {
	h := &Hop{}
	toks := lex(raw)

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.comment {
			continue
		}
		switch strings.ToLower(t.text) {
		case "from":
			i = h.parseFromClause(toks, i+1)
		case "by":
			if i+1 < len(toks) && !toks[i+1].comment {
				h.ByHostname = strings.TrimSuffix(toks[i+1].text, ";")
				i++
			}
		}
	}

	if h.Addr == nil && h.FromIP != "" {
		_, h.Addr = parseIPLiteral(h.FromIP)
	}
	if h.RealIP == "" && h.FromHostname == "" && h.FromIP == "" && h.ByHostname == "" {
		metrics.DegradeInc("receivedparse")
	}
	return h
}

// parseFromClause consumes the tokens following "from": the claimed
// hostname or address literal, then the receiving system's observations,
// either parenthesized or as a bare address literal. Returns the index of
// the last token consumed.
func (h *Hop) parseFromClause(toks []token, i int) int {
	if i >= len(toks) {
		return i - 1
	}

	if !toks[i].comment {
		if s, ip := parseIPLiteral(toks[i].text); ip != nil {
			h.FromIP = s
			h.Addr = ip
		} else {
			h.FromHostname = strings.TrimSuffix(toks[i].text, ";")
		}
		i++
	}

	// Observations, until the next clause keyword.
	for ; i < len(toks); i++ {
		t := toks[i]
		if !t.comment {
			switch strings.ToLower(t.text) {
			case "by", "via", "with", "id", "for":
				return i - 1
			}
			if s, ip := parseIPLiteral(t.text); ip != nil && h.RealIP == "" {
				h.RealIP = s
				h.Addr = ip
				continue
			}
			return i - 1
		}
		h.parseComment(t.text)
	}
	return i - 1
}

// parseComment extracts observed hostname/IP from a "(host [1.2.3.4])" style
// comment, including qmail/exim style "helo=" annotations.
func (h *Hop) parseComment(comment string) {
	for _, w := range strings.Fields(comment) {
		if v, ok := strings.CutPrefix(strings.ToLower(w), "helo="); ok {
			if h.FromHostname == "" {
				h.FromHostname = strings.TrimSuffix(v, ")")
			}
			continue
		}
		if s, ip := parseIPLiteral(w); ip != nil {
			if h.RealIP == "" {
				h.RealIP = s
				h.Addr = ip
			}
			continue
		}
		if h.RealHostname == "" && looksLikeHostname(w) {
			h.RealHostname = w
		}
	}
}
