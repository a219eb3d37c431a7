package agent

import (
	"fmt"
	"regexp"
	"time"

	"github.com/probe-agent/internal/digest"
	"github.com/probe-agent/internal/item"
	"github.com/probe-agent/internal/output"
	"github.com/probe-agent/pkg/config"
)

// buildItems maps validated item configs onto runnable items.
func buildItems(cfgs []config.ItemConfig) ([]item.Item, error) {
	items := make([]item.Item, 0, len(cfgs))
	for _, c := range cfgs {
		src, err := buildSource(c.Input)
		if err != nil {
			return nil, fmt.Errorf("item %q: %w", c.Key, err)
		}
		dig, err := buildDigester(c.Digest)
		if err != nil {
			return nil, fmt.Errorf("item %q: %w", c.Key, err)
		}
		items = append(items, item.Item{
			Key:      c.Key,
			Interval: time.Duration(c.Interval) * time.Second,
			Env:      c.Env,
			Source:   src,
			Digester: dig,
		})
	}
	return items, nil
}

func buildSource(c config.SourceConfig) (item.Source, error) {
	switch c.Type {
	case "file":
		return item.FileSource{Path: c.Path}, nil
	case "command":
		return item.CommandSource{Path: c.Path, Args: c.Args}, nil
	case "shell":
		return item.ShellSource{Script: c.Script}, nil
	default:
		return nil, fmt.Errorf("unknown input type %q", c.Type)
	}
}

func buildDigester(c config.DigestConfig) (digest.Digester, error) {
	switch c.Type {
	case "", "raw":
		return digest.Raw(), nil
	case "regex":
		re, err := regexp.Compile(c.Regex)
		if err != nil {
			return digest.Digester{}, fmt.Errorf("compile digest regex: %w", err)
		}
		return digest.Regex(re), nil
	case "monitoring-plugin":
		return digest.MonitoringPlugin(), nil
	default:
		return digest.Digester{}, fmt.Errorf("unknown digest type %q", c.Type)
	}
}

func buildOutputs(cfgs []config.OutputConfig) ([]output.Output, error) {
	outputs := make([]output.Output, 0, len(cfgs))
	for i, c := range cfgs {
		switch c.Type {
		case "file":
			outputs = append(outputs, &output.FileOutput{
				BaseDir:        c.BasePath,
				AlwaysWriteRaw: c.AlwaysWriteRaw,
			})
		case "influxdb":
			outputs = append(outputs, output.NewInfluxOutput(
				c.URL, c.Database, c.Username, c.Password,
				c.UseRawAsFallback, c.AlwaysWriteRaw))
		default:
			return nil, fmt.Errorf("output %d: unknown type %q", i, c.Type)
		}
	}
	return outputs, nil
}
