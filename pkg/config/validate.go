package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Validate runs struct-tag validation plus the cross-field checks the tags
// cannot express: variant payloads, duplicate keys and regex syntax.
func (c *Config) Validate() error {
	if err := valid.Struct(c); err != nil {
		return err
	}
	if err := c.validateItems(); err != nil {
		return err
	}
	return c.validateOutputs()
}

func (c *Config) validateItems() error {
	seen := make(map[string]bool, len(c.Items))
	var duplicates []string
	for _, it := range c.Items {
		if seen[it.Key] {
			duplicates = append(duplicates, it.Key)
		}
		seen[it.Key] = true

		if err := it.Input.validate(); err != nil {
			return fmt.Errorf("item %q: %w", it.Key, err)
		}
		if err := it.Digest.validate(); err != nil {
			return fmt.Errorf("item %q: %w", it.Key, err)
		}
	}
	if len(duplicates) > 0 {
		sort.Strings(duplicates)
		return fmt.Errorf("duplicate item keys: %s", strings.Join(duplicates, ", "))
	}
	return nil
}

func (s SourceConfig) validate() error {
	switch s.Type {
	case "file":
		if s.Path == "" {
			return fmt.Errorf("file input requires a path")
		}
	case "command":
		if s.Path == "" {
			return fmt.Errorf("command input requires a path")
		}
	case "shell":
		if s.Script == "" {
			return fmt.Errorf("shell input requires a script")
		}
	}
	return nil
}

func (d DigestConfig) validate() error {
	if d.Type != "regex" {
		return nil
	}
	if d.Regex == "" {
		return fmt.Errorf("regex digest requires a regex")
	}
	re, err := regexp.Compile(d.Regex)
	if err != nil {
		return fmt.Errorf("regex digest does not compile: %w", err)
	}
	named := 0
	for _, name := range re.SubexpNames() {
		if name != "" {
			named++
		}
	}
	if named == 0 {
		return fmt.Errorf("regex digest needs at least one named capture group")
	}
	return nil
}

func (c *Config) validateOutputs() error {
	for i, out := range c.Outputs {
		switch out.Type {
		case "file":
			if out.BasePath == "" {
				return fmt.Errorf("output %d: file output requires base_path", i)
			}
		case "influxdb":
			if out.URL == "" {
				return fmt.Errorf("output %d: influxdb output requires url", i)
			}
			if out.Database == "" {
				return fmt.Errorf("output %d: influxdb output requires database", i)
			}
			if out.Username != "" && out.Password == "" {
				return fmt.Errorf("output %d: influxdb username given without password", i)
			}
		}
	}
	return nil
}
