package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
)

// Target is one named database connection migrations can run against.
type Target struct {
	// ID identifies the target for lock scoping; generated when omitted.
	ID      string `toml:"id"`
	Driver  string `toml:"driver"`
	DSN     string `toml:"dsn"`
	Dialect string `toml:"dialect"`
}

// Targets is the parsed targets file.
type Targets struct {
	Targets map[string]Target `toml:"targets"`
}

var validDrivers = map[string]bool{
	"postgres":  true,
	"mysql":     true,
	"sqlserver": true,
	"sqlite":    true,
}

var validDialects = map[string]bool{
	"postgres":  true,
	"mysql":     true,
	"sqlserver": true,
}

// LoadTargets reads and validates the TOML targets file. Unknown keys are
// rejected so typos fail loudly instead of silently applying defaults.
func LoadTargets(path string) (*Targets, error) {
	var t Targets
	md, err := toml.DecodeFile(path, &t)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	for name, target := range t.Targets {
		if target.DSN == "" {
			return nil, fmt.Errorf("target %q: dsn is required", name)
		}
		if !validDrivers[strings.ToLower(target.Driver)] {
			return nil, fmt.Errorf("target %q: driver must be one of postgres, mysql, sqlserver, sqlite", name)
		}
		if target.Dialect == "" {
			// sqlite targets still need a dialect for generated DDL; default
			// the rest to the driver's own syntax
			if strings.EqualFold(target.Driver, "sqlite") {
				return nil, fmt.Errorf("target %q: dialect is required for sqlite targets", name)
			}
			target.Dialect = strings.ToLower(target.Driver)
		}
		if !validDialects[strings.ToLower(target.Dialect)] {
			return nil, fmt.Errorf("target %q: dialect must be one of postgres, mysql, sqlserver", name)
		}
		if target.ID == "" {
			// stable lock identity derived from the target name
			target.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("schemashift:"+name)).String()
		} else if _, err := uuid.Parse(target.ID); err != nil {
			return nil, fmt.Errorf("target %q: id must be a uuid: %w", name, err)
		}
		t.Targets[name] = target
	}
	return &t, nil
}

// Target returns the named target.
func (t *Targets) Target(name string) (Target, error) {
	target, ok := t.Targets[name]
	if !ok {
		names := make([]string, 0, len(t.Targets))
		for n := range t.Targets {
			names = append(names, n)
		}
		return Target{}, fmt.Errorf("unknown target %q (have: %s)", name, strings.Join(names, ", "))
	}
	return target, nil
}

// LockID parses the target's uuid for advisory lock scoping.
func (t Target) LockID() uuid.UUID {
	id, err := uuid.Parse(t.ID)
	if err != nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(t.DSN))
	}
	return id
}
