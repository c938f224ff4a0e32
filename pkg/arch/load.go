package arch

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Load decodes a YAML profile and validates it.
func Load(r io.Reader) (*Profile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var p Profile
	if err := dec.Decode(&p); err != nil {
		return nil, errors.Wrap(err, "decode profile")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadFile reads a profile from path. A name of a built-in profile is also
// accepted so command line flags can take either.
func LoadFile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			if p, lerr := Lookup(path); lerr == nil {
				return p, nil
			}
		}
		return nil, errors.Wrap(err, "open profile")
	}
	defer f.Close()

	p, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "profile %s", path)
	}
	return p, nil
}

// Dump writes p as YAML.
func Dump(w io.Writer, p *Profile) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return errors.Wrap(err, "encode profile")
	}
	return enc.Close()
}
