package config

import (
	"fmt"
	"sort"

	"github.com/sofmeright/forgeline/src/platform"
	"github.com/sofmeright/forgeline/src/toolchain"
)

// ToolchainRequest maps the config to a resolver request.
func (c *Config) ToolchainRequest() toolchain.Request {
	req := toolchain.Request{
		Version: c.Toolchain.Version,
		Channel: c.Toolchain.Channel,
		Target:  toolchain.Target(c.Toolchain.Target),
	}
	for _, comp := range c.Toolchain.Components {
		req.Components = append(req.Components, toolchain.Component(comp))
	}
	return req
}

// NativeInputs resolves the built-in native inputs for p, then applies the
// configured platform overrides in declaration order (last write wins).
// Every pipeline stage and the dev shell must use this one resolution.
func (c *Config) NativeInputs(p platform.Platform) (platform.BuildInputs, error) {
	features := platform.FeatureSet{}
	for _, o := range c.Platforms {
		op, err := platform.Parse(o.Platform)
		if err != nil {
			return platform.BuildInputs{}, fmt.Errorf("%w: platform override %q: %v", ErrInvalidConfig, o.Platform, err)
		}
		if op != p {
			continue
		}
		if o.Windowed != nil {
			features.Windowed = *o.Windowed
		}
	}

	inputs, err := platform.NativeInputs(p, features)
	if err != nil {
		return platform.BuildInputs{}, err
	}

	for _, o := range c.Platforms {
		op, _ := platform.Parse(o.Platform)
		if op != p {
			continue
		}
		inputs.NativeLibraries = appendUnique(inputs.NativeLibraries, o.ExtraNativeLibraries)
		inputs.NativeBuildTools = appendUnique(inputs.NativeBuildTools, o.ExtraNativeBuildTools)
	}

	sort.Strings(inputs.NativeLibraries)
	sort.Strings(inputs.NativeBuildTools)
	return inputs, nil
}

func appendUnique(base, extra []string) []string {
	have := make(map[string]bool, len(base))
	for _, v := range base {
		have[v] = true
	}
	for _, v := range extra {
		if !have[v] {
			base = append(base, v)
			have[v] = true
		}
	}
	return base
}
