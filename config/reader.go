package config

import (
	"encoding/json"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// Load reads the JSON config at path over the defaults and validates it. Environment
// variables in the file, written ${NAME}, are expanded first.
func Load(path string) (*Config, error) {
	buf, err := envsubst.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config file %q", path)
	}
	cfg, err := FromJSON(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "config file %q", path)
	}
	return cfg, nil
}

// FromJSON decodes raw JSON over the defaults and validates the result. Unknown keys are an
// error.
func FromJSON(raw []byte) (*Config, error) {
	var attrs map[string]interface{}
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, errors.Wrap(err, "cannot parse config")
	}
	cfg := Default()
	if err := decode(attrs, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(attrs map[string]interface{}, cfg *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Squash:           true,
		Result:           cfg,
	})
	if err != nil {
		return errors.Wrap(err, "error creating decoder")
	}
	return decoder.Decode(attrs)
}
