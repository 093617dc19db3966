package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/horus-robotics/horus/internal/cos"
	"gopkg.in/yaml.v3"
)

// Transport names a topic's requested backing (spec §6 "Transport ∈
// {local, localhost, router, multicast, direct}").
type Transport string

const (
	TransportLocal     Transport = "local"
	TransportLocalhost Transport = "localhost"
	TransportRouter    Transport = "router"
	TransportMulticast Transport = "multicast"
	TransportDirect    Transport = "direct"
)

// HubConfig is one entry under the file's top-level `hubs` map (spec §6).
// Endpoint, if present, is used verbatim; otherwise one is synthesized
// from Transport/Host/Port per the endpoint grammar.
type HubConfig struct {
	Endpoint  string         `toml:"endpoint" yaml:"endpoint"`
	Transport Transport      `toml:"transport" yaml:"transport"`
	Host      string         `toml:"host" yaml:"host"`
	Port      int            `toml:"port" yaml:"port"`
	TLS       bool           `toml:"tls" yaml:"tls"`
	TLSCert   string         `toml:"tls_cert" yaml:"tls_cert"`
	TLSKey    string         `toml:"tls_key" yaml:"tls_key"`
	Options   map[string]any `toml:"options" yaml:"options"`
}

// File is the top-level on-disk schema: a topic-name-keyed map of hub
// declarations, plus an optional scheduler block and preset selector.
type File struct {
	Hubs      map[string]HubConfig `toml:"hubs" yaml:"hubs"`
	Preset    string               `toml:"preset" yaml:"preset"`
	Scheduler *Scheduler           `toml:"scheduler" yaml:"scheduler"`
}

// ResolvedEndpoint returns hc.Endpoint if set, otherwise the endpoint
// string synthesized from Transport/Host/Port (spec §6 "The effective
// endpoint string is either endpoint ... or synthesized from the
// transport/host/port triple").
func (hc HubConfig) ResolvedEndpoint(topicName string) string {
	if hc.Endpoint != "" {
		return hc.Endpoint
	}
	switch hc.Transport {
	case TransportLocalhost:
		return topicName + "@localhost"
	case TransportMulticast:
		return topicName + "@*"
	case TransportRouter:
		if hc.Port != 0 {
			return fmt.Sprintf("%s@router:%d", topicName, hc.Port)
		}
		return topicName + "@router"
	case TransportDirect:
		host := hc.Host
		if host == "" {
			host = "127.0.0.1"
		}
		if hc.Port != 0 {
			return fmt.Sprintf("%s@%s:%d", topicName, host, hc.Port)
		}
		return fmt.Sprintf("%s@%s", topicName, host)
	default:
		return topicName
	}
}

// SearchPaths is the ordered fallback list from spec §6: current
// directory, then the user's ~/.horus, then /etc/horus, each tried with
// every recognized extension.
func SearchPaths() []string {
	home, _ := os.UserHomeDir()
	var paths []string
	for _, ext := range []string{"toml", "yaml", "yml"} {
		paths = append(paths, "./horus."+ext)
	}
	if home != "" {
		for _, ext := range []string{"toml", "yaml", "yml"} {
			paths = append(paths, filepath.Join(home, ".horus", "config."+ext))
		}
	}
	for _, ext := range []string{"toml", "yaml"} {
		paths = append(paths, filepath.Join("/etc/horus", "config."+ext))
	}
	return paths
}

// Find walks SearchPaths and returns the first one that exists.
func Find() (string, error) {
	for _, p := range SearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", cos.NewErrNotFound("configuration file in any search path")
}

// Load locates a configuration file via Find and parses it.
func Load() (*File, error) {
	path, err := Find()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile parses path, auto-detecting TOML vs YAML by extension; when
// the extension is ambiguous or missing it tries TOML then YAML, per
// spec §6 "auto-detected by extension (with fallback across formats)".
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cos.NewConfigError("load", err)
	}

	var f File
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		if _, err := toml.Decode(string(data), &f); err != nil {
			return nil, cos.NewConfigError("parse-toml", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, cos.NewConfigError("parse-yaml", err)
		}
	default:
		if _, tomlErr := toml.Decode(string(data), &f); tomlErr != nil {
			if yamlErr := yaml.Unmarshal(data, &f); yamlErr != nil {
				return nil, cos.NewConfigError("parse", fmt.Errorf("neither TOML (%v) nor YAML (%v) parsed", tomlErr, yamlErr))
			}
		}
	}

	if f.Preset != "" {
		preset, ok := Preset(f.Preset)
		if !ok {
			return nil, cos.NewConfigError("preset", fmt.Errorf("unknown preset %q", f.Preset))
		}
		if f.Scheduler == nil {
			f.Scheduler = &preset
		}
	}
	return &f, nil
}
