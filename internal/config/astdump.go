package config

import "gopkg.in/yaml.v3"

// astView is a YAML-friendly projection of Config; the rule chains are
// already plain data so yaml.v3 needs no custom marshaling, mirroring the
// teacher's Config.Save pattern but for read-only introspection (--ast).
type astView struct {
	DefaultAction string                    `yaml:"default_action"`
	StatusAddr    string                    `yaml:"status_addr,omitempty"`
	UDP           []UDPEndpoint             `yaml:"udp,omitempty"`
	Serial        []SerialEndpoint          `yaml:"serial,omitempty"`
	Chains        map[string]*Chain         `yaml:"chains"`
}

// DumpAST renders the parsed configuration tree as YAML, for `mavrouter
// --ast`.
func DumpAST(c *Config) (string, error) {
	view := astView{
		DefaultAction: c.DefaultAction,
		StatusAddr:    c.StatusAddr,
		UDP:           c.UDP,
		Serial:        c.Serial,
		Chains:        c.Chains,
	}
	out, err := yaml.Marshal(view)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
