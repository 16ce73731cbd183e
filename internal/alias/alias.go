// Package alias loads the optional TOML "known-macs" table: a read-only
// MAC-to-display-name map consulted by the terminal's "ls mac" and "ls tap"
// commands.
package alias

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"d3cap/internal/addr"
)

type file struct {
	KnownMacs map[string]string `toml:"known-macs"`
}

// Map is a read-only, immutable-after-load MAC alias table.
type Map struct {
	names map[addr.Mac]string
}

// Load reads the TOML file at path and returns its known-macs table.
// A missing file, unreadable file, or unparseable TOML degrades to an empty
// map rather than an error, since a missing alias file is the common case,
// not a misconfiguration worth failing startup over. Individual malformed
// entries (keys that don't parse as a MAC) are skipped silently rather than
// failing the whole load.
func Load(path string) Map {
	if path == "" {
		return Map{names: make(map[addr.Mac]string)}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Map{names: make(map[addr.Mac]string)}
	}
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return Map{names: make(map[addr.Mac]string)}
	}
	names := make(map[addr.Mac]string, len(f.KnownMacs))
	for k, v := range f.KnownMacs {
		m, ok := addr.ParseMac(k)
		if !ok {
			continue
		}
		names[m] = v
	}
	return Map{names: names}
}

// Name returns the display name for m, if one was configured.
func (a Map) Name(m addr.Mac) (string, bool) {
	n, ok := a.names[m]
	return n, ok
}

// Len reports how many aliases are loaded.
func (a Map) Len() int { return len(a.names) }

// All returns a copy of the full MAC -> name table, for serialization into
// the WebSocket welcome message.
func (a Map) All() map[addr.Mac]string {
	out := make(map[addr.Mac]string, len(a.names))
	for k, v := range a.names {
		out[k] = v
	}
	return out
}
