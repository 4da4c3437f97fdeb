// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Known key files.
const (
	OpenAIKey     = "openai-api-key"
	AnthropicKey  = "anthropic-api-key"
	OpenAlexEmail = "openalex-email"
)

// Set maps key names to secret values.
type Set map[string]string

// Load reads all files in dir and returns their trimmed contents by filename.
// A missing directory is not an error; Load returns an empty Set.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(Set)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Lookup returns the first non-empty value among explicit, the secret
// stored under key, and the environment variables envVars in order.
func (s Set) Lookup(key, explicit string, envVars ...string) string {
	if explicit != "" {
		return explicit
	}
	if v := s[key]; v != "" {
		return v
	}
	for _, name := range envVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// Keys returns the loaded key names, sorted. Values are never exposed.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
