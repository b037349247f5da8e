/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/Seednode/namewheel/spin"
)

const profilesEnvPrefix = "NAMEWHEEL_PROFILES_"

var ErrLoadProfiles = errors.New("load intensity profiles")

type profileCatalog struct {
	Profiles map[string]spin.Profile `koanf:"profiles"`
}

// profileEnvKey maps NAMEWHEEL_PROFILES_<NAME>_<MIN|MAX> onto
// profiles.<name>.<min|max>. Only the last underscore splits, so names may
// contain underscores. Anything else is skipped.
func profileEnvKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, profilesEnvPrefix))

	i := strings.LastIndex(s, "_")
	if i <= 0 {
		return ""
	}

	name, field := s[:i], s[i+1:]
	if field != "min" && field != "max" {
		return ""
	}

	return "profiles." + name + "." + field
}

// loadProfiles layers intensity profiles, lowest precedence first:
//  1. built-in defaults
//  2. the YAML file at path, if set
//  3. env, e.g. NAMEWHEEL_PROFILES_WILD_MAX=20
//
// A profile only partially given keeps the built-in value for the rest.
func loadProfiles(path string) (map[string]spin.Profile, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadProfiles, err)
		}
	}

	envProvider := env.Provider(profilesEnvPrefix, ".", profileEnvKey)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadProfiles, err)
	}

	var catalog profileCatalog
	if err := k.UnmarshalWithConf("", &catalog, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadProfiles, err)
	}

	profiles := spin.DefaultProfiles()

	for name, p := range catalog.Profiles {
		name = strings.ToLower(strings.TrimSpace(name))

		if base, ok := profiles[name]; ok {
			if p.MinSpins == 0 {
				p.MinSpins = base.MinSpins
			}
			if p.MaxSpins == 0 {
				p.MaxSpins = base.MaxSpins
			}
		}
		p.Name = name

		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadProfiles, err)
		}

		profiles[name] = p
	}

	return profiles, nil
}
