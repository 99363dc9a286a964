package received

import (
	"net"

	"github.com/mailscan/mailscan/mlog"
)

// BuildChain parses the ordered raw Received header values (index 0 is the
// topmost header, the hop closest to the receiving system) into the hop
// chain.
//
// For hop 0 only, the claimed origin is cross-checked against the
// transport-observed peer address. When they disagree, or hop 0 resolves no
// origin IP at all, or ignoreReceived is set, a synthetic hop built from the
// peer address is inserted before the parsed hop, which is retained. With an
// unknown peer no correction is possible.
//
// The inverse flow: with an unknown peer and correction not disabled, the
// peer address and hostname are backfilled from hop 0's observed fields.
// The possibly-updated peer address and hostname are returned along with the
// chain.
func BuildChain(log *mlog.Log, raws []string, peer net.IP, peerHostname string, ignoreReceived bool) ([]*Hop, net.IP, string) {
	var hops []*Hop
	for i, raw := range raws {
		hop := ParseHop(raw)
		if i == 0 {
			needCorrection := false
			if hop.RealIP == "" || ignoreReceived {
				needCorrection = true
			} else if peer != nil && (hop.Addr == nil || !hop.Addr.Equal(peer)) {
				needCorrection = true
			}
			if needCorrection && peer != nil {
				log.Debug("first received hop not ours, inserting hop for connecting address", mlog.Field("peer", peer.String()))
				synth := &Hop{
					RealIP:    peer.String(),
					FromIP:    peer.String(),
					Addr:      peer,
					Synthetic: true,
				}
				if peerHostname != "" {
					synth.RealHostname = peerHostname
					synth.FromHostname = peerHostname
				}
				hops = append(hops, synth)
			}
		}
		hops = append(hops, hop)
	}

	if len(hops) > 0 && peer == nil && !ignoreReceived {
		h0 := hops[0]
		if h0.RealIP != "" {
			if ip := net.ParseIP(h0.RealIP); ip != nil {
				peer = ip
			} else {
				log.Info("cannot get IP from received header", mlog.Field("value", h0.RealIP))
			}
		}
		if h0.RealHostname != "" {
			peerHostname = h0.RealHostname
		}
	}
	return hops, peer, peerHostname
}
