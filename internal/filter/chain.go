package filter

import (
	"mavrouter/internal/config"
	"mavrouter/internal/mavaddress"
	"mavrouter/internal/packet"
)

// ChainFilter is the one real Filter implementation: it walks the parsed
// rule chains from config, starting at "default". "call" recurses into the
// named chain and falls back through to the rest of the current chain if
// nothing in the called chain matched; "goto" recurses and never returns,
// mirroring the distinct control flow of the two verbs in the original
// Action/ActionResult pair.
type ChainFilter struct {
	cfg *config.Config
}

// NewChainFilter builds a filter over cfg's chains.
func NewChainFilter(cfg *config.Config) *ChainFilter {
	return &ChainFilter{cfg: cfg}
}

// WillAccept evaluates the "default" chain against pkt for recipient.
func (f *ChainFilter) WillAccept(pkt *packet.Packet, recipient mavaddress.Address) Verdict {
	v, matched := f.evalChain("default", pkt, recipient, map[string]bool{})
	if matched {
		return v
	}
	return Verdict{Accept: f.cfg.DefaultAction == "accept", Priority: 0}
}

// evalChain returns the verdict of the first matching rule in chain name,
// and whether any rule matched at all. visiting guards against config
// cycles between call/goto targets.
func (f *ChainFilter) evalChain(name string, pkt *packet.Packet, recipient mavaddress.Address, visiting map[string]bool) (Verdict, bool) {
	if visiting[name] {
		return Verdict{}, false
	}
	visiting[name] = true
	ch, ok := f.cfg.Chain(name)
	if !ok {
		return Verdict{}, false
	}
	for _, rule := range ch.Rules {
		if !conditionsMatch(rule.Conditions, pkt, recipient) {
			continue
		}
		switch rule.Action {
		case "accept":
			return Verdict{Accept: true, Priority: rule.Priority}, true
		case "reject":
			return Verdict{Accept: false, Priority: rule.Priority}, true
		case "call":
			if v, matched := f.evalChain(rule.Target, pkt, recipient, visiting); matched {
				return v, true
			}
			// fallthrough: continue scanning the calling chain's rules
		case "goto":
			return f.evalChain(rule.Target, pkt, recipient, visiting)
		}
	}
	return Verdict{}, false
}

func conditionsMatch(conds []config.Condition, pkt *packet.Packet, recipient mavaddress.Address) bool {
	for _, c := range conds {
		switch c.Kind {
		case "source":
			sub, err := mavaddress.ParseSubnet(c.Value)
			if err != nil || !sub.Contains(pkt.Source()) {
				return false
			}
		case "dest":
			sub, err := mavaddress.ParseSubnet(c.Value)
			if err != nil || !sub.Contains(recipient) {
				return false
			}
		case "packet_type":
			if pkt.Name() != c.Value {
				return false
			}
		}
	}
	return true
}
