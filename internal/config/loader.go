package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".cjagent"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("CJAGENT_CONFIG")); explicit != "" {
		return ExpandHome(explicit)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[1:]), nil
}

// envGroups binds each config group to its environment prefix.
func envGroups(cfg *Config) map[string]any {
	return map[string]any{
		"CJAGENT":         &cfg.Paths,
		"CJAGENT_MODEL":   &cfg.Model,
		"CJAGENT_OPENAI":  &cfg.Providers.OpenAI,
		"CJAGENT_GEMINI":  &cfg.Providers.Gemini,
		"CJAGENT_AGENT":   &cfg.Agent,
		"CJAGENT_GATEWAY": &cfg.Gateway,
		"CJAGENT_AUDIT":   &cfg.Audit,
		"CJAGENT_LOG":     &cfg.Log,
	}
}

// Load loads the configuration from file and environment variables.
// Priority: environment > file > defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	LoadEnvFileCandidates()

	path, err := ConfigPath()
	if err != nil {
		// No home directory: defaults plus environment.
		path = ""
	}
	if _, statErr := os.Stat(path); path != "" && statErr == nil {
		data, err := loadResolvedConfig(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	for prefix, group := range envGroups(cfg) {
		if err := envconfig.Process(prefix, group); err != nil {
			return nil, fmt.Errorf("env %s: %w", prefix, err)
		}
	}
	return cfg, nil
}

// Save writes cfg as indented JSON to ConfigPath, creating the directory.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// layer is one parsed config file before it is decoded into Config.
type layer map[string]any

// readLayer parses path as YAML when it has a .yaml or .yml extension and
// as JSON otherwise.
func readLayer(path string) (layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	l := layer{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &l)
	default:
		err = json.Unmarshal(data, &l)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if l == nil {
		l = layer{}
	}
	return l, nil
}

// resolver follows "$include" references depth first. stack holds the files
// currently being resolved so a file including itself, directly or not, fails.
type resolver struct {
	stack []string
}

func (r *resolver) resolve(path string) (layer, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	for _, open := range r.stack {
		if open == abs {
			return nil, fmt.Errorf("config include cycle: %s", strings.Join(append(r.stack, abs), " -> "))
		}
	}
	r.stack = append(r.stack, abs)
	defer func() { r.stack = r.stack[:len(r.stack)-1] }()

	own, err := readLayer(abs)
	if err != nil {
		return nil, err
	}
	includes, err := includeList(own["$include"])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", abs, err)
	}
	delete(own, "$include")

	out := layer{}
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(abs), inc)
		}
		child, err := r.resolve(inc)
		if err != nil {
			return nil, err
		}
		out.merge(child)
	}
	out.merge(expandEnv(map[string]any(own)).(map[string]any))
	return out, nil
}

// loadResolvedConfig returns the fully merged file tree at path as JSON.
func loadResolvedConfig(path string) ([]byte, error) {
	l, err := (&resolver{}).resolve(path)
	if err != nil {
		return nil, err
	}
	return json.Marshal(l)
}

func includeList(v any) ([]string, error) {
	var raw []any
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		raw = []any{t}
	case []any:
		raw = t
	default:
		return nil, errors.New("$include must be a string or a list of strings")
	}
	var out []string
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, errors.New("$include entries must be strings")
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// merge overlays src onto l. Nested objects merge key by key; anything else
// replaces the existing value.
func (l layer) merge(src map[string]any) {
	for k, v := range src {
		sub, isMap := v.(map[string]any)
		if !isMap {
			l[k] = v
			continue
		}
		cur, ok := l[k].(map[string]any)
		if !ok {
			cur = map[string]any{}
			l[k] = cur
		}
		layer(cur).merge(sub)
	}
}

// expandEnv replaces ${NAME} in every string value. Unset variables are left
// as written so a missing secret is visible instead of silently empty.
func expandEnv(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = expandEnv(item)
		}
	case []any:
		for i, item := range t {
			t[i] = expandEnv(item)
		}
	case string:
		return envRef.ReplaceAllStringFunc(t, func(ref string) string {
			if val, ok := os.LookupEnv(envRef.FindStringSubmatch(ref)[1]); ok {
				return val
			}
			return ref
		})
	}
	return v
}
