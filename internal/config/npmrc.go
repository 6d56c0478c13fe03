// Package config reads the ambient project configuration an install run
// needs: the registry/token pair from .npmrc, and the dependency mapping
// from package.json. Neither file format is owned by this installer; both
// are treated as external, loosely-specified inputs.
package config

import (
	"bufio"
	"os"
	"strings"
)

// Config is the flattened view of one or more .npmrc files.
type Config struct {
	Registry string
	Token    string
	Values   map[string]string
}

const defaultRegistry = "https://registry.npmjs.org/"

// LoadNpmrc reads each of paths in order, later files overriding earlier
// ones. Pass the home .npmrc first and the project .npmrc last so project
// settings win, per convention. Missing files are silently skipped.
func LoadNpmrc(paths ...string) (Config, error) {
	cfg := Config{Registry: defaultRegistry, Values: make(map[string]string)}
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Config{}, err
		}
		applyNpmrc(f, &cfg)
		f.Close()
	}
	if !strings.HasSuffix(cfg.Registry, "/") {
		cfg.Registry += "/"
	}
	return cfg, nil
}

func applyNpmrc(f *os.File, cfg *Config) {
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "//"):
			registryHost, rest, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			cfg.Registry = "https:" + registryHost
			if _, tok, ok := strings.Cut(rest, "="); ok {
				cfg.Token = strings.TrimSpace(tok)
			}
		default:
			key, value, ok := strings.Cut(line, "=")
			if !ok {
				continue
			}
			cfg.Values[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}
}
