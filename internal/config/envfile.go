package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LoadEnvFileCandidates sets variables from the env files cjagent knows about.
// A variable already present in the process environment always wins, and the
// first file that defines a variable wins over later ones.
func LoadEnvFileCandidates() {
	for _, p := range envFileCandidates() {
		_ = loadEnvFile(p)
	}
}

// envFileCandidates lists, in priority order and without duplicates, the
// absolute paths of CJAGENT_ENV_FILE, ~/.config/cjagent/env,
// ~/.cjagent/.env and ./.dev.vars.
func envFileCandidates() []string {
	var raw []string
	if explicit := strings.TrimSpace(os.Getenv("CJAGENT_ENV_FILE")); explicit != "" {
		if p, err := ExpandHome(explicit); err == nil {
			raw = append(raw, p)
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		raw = append(raw, filepath.Join(home, ".config", "cjagent", "env"), filepath.Join(home, ConfigDir, ".env"))
	}
	raw = append(raw, ".dev.vars")

	out := raw[:0]
	seen := make(map[string]bool, len(raw))
	for _, p := range raw {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

func loadEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, val, ok := parseEnvLine(sc.Text())
		if !ok {
			continue
		}
		if _, set := os.LookupEnv(key); !set {
			_ = os.Setenv(key, val)
		}
	}
	return sc.Err()
}

// parseEnvLine accepts KEY=value with an optional "export " prefix. Double
// quoted values may use Go escapes; single quoted values are taken literally.
func parseEnvLine(raw string) (key, val string, ok bool) {
	line := strings.TrimSpace(raw)
	if line == "" || line[0] == '#' {
		return "", "", false
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
	k, v, found := strings.Cut(line, "=")
	if key = strings.TrimSpace(k); !found || key == "" {
		return "", "", false
	}
	return key, unquote(strings.TrimSpace(v)), true
}

func unquote(v string) string {
	if len(v) < 2 || v[0] != v[len(v)-1] {
		return v
	}
	switch v[0] {
	case '"':
		if s, err := strconv.Unquote(v); err == nil {
			return s
		}
		return v[1 : len(v)-1]
	case '\'':
		return v[1 : len(v)-1]
	}
	return v
}
