package config

import (
	"bytes"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
)

// ErrConfigExists is returned by WriteStarter when the target already exists
var ErrConfigExists = errors.New("config file already exists")

const starterHeader = `# gatestub configuration
#
# Environment variables override these values: GATESTUB_WORKERS=4,
# GATESTUB_HISTORY_ENABLED=false, GATESTUB_IGNORE=".git,build".

`

// Starter returns the defaults as written by "gatestub init". The worker
// count is left out so it keeps following the machine's CPU count.
func Starter() *Config {
	cfg := Default()
	cfg.Workers = 0
	return cfg
}

// MarshalTOML encodes cfg as a gatestub.toml document
func MarshalTOML(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(starterHeader)
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to encode config")
	}
	return buf.Bytes(), nil
}

// WriteStarter writes the starter configuration to path. An existing file is
// only replaced when force is set.
func WriteStarter(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return errors.Mark(errors.Newf("%s already exists", path), ErrConfigExists)
		}
	}

	data, err := MarshalTOML(Starter())
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
