package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrConfigInvalid is wrapped by every parse failure, letting cmd/mavrouter
// map configuration errors to exit code 2 per spec §7.
var ErrConfigInvalid = fmt.Errorf("config: invalid configuration")

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrConfigInvalid, path, err)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigInvalid, path, err)
	}
	return cfg, nil
}

// Parse parses the curly-brace grammar from spec §6 into a Config.
func Parse(src string) (*Config, error) {
	toks := tokenize(src)
	p := &parser{toks: toks}
	cfg := New()
	for !p.atEnd() {
		word := p.next()
		switch word {
		case "default_action":
			action := p.next()
			if action != "accept" && action != "reject" {
				return nil, fmt.Errorf("line %d: default_action must be accept or reject, got %q", p.line(), action)
			}
			cfg.DefaultAction = action
			p.expect(";")
		case "status_addr":
			cfg.StatusAddr = p.next()
			p.expect(";")
		case "udp":
			ep, err := p.parseUDP()
			if err != nil {
				return nil, err
			}
			cfg.UDP = append(cfg.UDP, ep)
		case "serial":
			ep, err := p.parseSerial()
			if err != nil {
				return nil, err
			}
			cfg.Serial = append(cfg.Serial, ep)
		case "chain":
			name := p.next()
			ch, err := p.parseChain(name)
			if err != nil {
				return nil, err
			}
			cfg.Chains[name] = ch
		case "":
			// trailing whitespace/EOF
		default:
			return nil, fmt.Errorf("line %d: unexpected token %q", p.line(), word)
		}
	}
	if _, ok := cfg.Chains["default"]; !ok {
		cfg.Chains["default"] = &Chain{Name: "default"}
	}
	return cfg, nil
}

func (p *parser) parseUDP() (UDPEndpoint, error) {
	var ep UDPEndpoint
	p.expect("{")
	for p.peek() != "}" {
		key := p.next()
		switch key {
		case "port":
			n, err := strconv.Atoi(p.next())
			if err != nil {
				return ep, fmt.Errorf("line %d: invalid udp port: %v", p.line(), err)
			}
			ep.Port = n
		case "address":
			ep.Address = p.next()
		case "mirror":
			ep.Mirror = true
		default:
			return ep, fmt.Errorf("line %d: unknown udp field %q", p.line(), key)
		}
		p.expect(";")
	}
	p.expect("}")
	return ep, nil
}

func (p *parser) parseSerial() (SerialEndpoint, error) {
	var ep SerialEndpoint
	p.expect("{")
	for p.peek() != "}" {
		key := p.next()
		switch key {
		case "device":
			ep.Device = p.next()
		case "baud":
			n, err := strconv.Atoi(p.next())
			if err != nil {
				return ep, fmt.Errorf("line %d: invalid baud rate: %v", p.line(), err)
			}
			ep.Baud = n
		case "flow_control":
			ep.Flow = true
		case "mirror":
			ep.Mirror = true
		default:
			return ep, fmt.Errorf("line %d: unknown serial field %q", p.line(), key)
		}
		p.expect(";")
	}
	p.expect("}")
	return ep, nil
}

func (p *parser) parseChain(name string) (*Chain, error) {
	ch := &Chain{Name: name}
	p.expect("{")
	for p.peek() != "}" {
		rule, err := p.parseRule()
		if err != nil {
			return nil, err
		}
		ch.Rules = append(ch.Rules, rule)
	}
	p.expect("}")
	return ch, nil
}

func (p *parser) parseRule() (Rule, error) {
	var r Rule
	action := p.next()
	switch action {
	case "accept", "reject":
		r.Action = action
	case "call", "goto":
		r.Action = action
		r.Target = p.next()
	default:
		return r, fmt.Errorf("line %d: unknown rule action %q", p.line(), action)
	}
	for p.peek() != ";" {
		kind := p.next()
		switch kind {
		case "source", "dest", "packet_type":
			r.Conditions = append(r.Conditions, Condition{Kind: kind, Value: p.next()})
		case "priority":
			n, err := strconv.Atoi(p.next())
			if err != nil {
				return r, fmt.Errorf("line %d: invalid priority: %v", p.line(), err)
			}
			r.Priority = n
		default:
			return r, fmt.Errorf("line %d: unknown rule clause %q", p.line(), kind)
		}
	}
	p.expect(";")
	return r, nil
}

// --- tokenizer ---

type token struct {
	text string
	line int
}

func tokenize(src string) []token {
	var toks []token
	line := 1
	i := 0
	n := len(src)
	for i < n {
		c := src[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '#' || (c == '/' && i+1 < n && src[i+1] == '/'):
			for i < n && src[i] != '\n' {
				i++
			}
		case c == '{' || c == '}' || c == ';':
			toks = append(toks, token{text: string(c), line: line})
			i++
		default:
			start := i
			for i < n && !strings.ContainsRune(" \t\r\n{};", rune(src[i])) {
				i++
			}
			toks = append(toks, token{text: src[start:i], line: line})
		}
	}
	return toks
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() string {
	if p.atEnd() {
		return ""
	}
	return p.toks[p.pos].text
}

func (p *parser) line() int {
	if p.atEnd() {
		if len(p.toks) == 0 {
			return 0
		}
		return p.toks[len(p.toks)-1].line
	}
	return p.toks[p.pos].line
}

func (p *parser) next() string {
	if p.atEnd() {
		return ""
	}
	t := p.toks[p.pos]
	p.pos++
	return t.text
}

func (p *parser) expect(s string) {
	if p.peek() == s {
		p.pos++
	}
}
