package rules

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/document-triage/internal/core/domain"
)

const (
	RulesFile     = "industry_rules.yaml"
	FiletypesFile = "supported_filetypes.yaml"

	bundledSource = "bundled"
)

//go:embed defaults/*.yaml
var bundled embed.FS

// Source describes where rule configuration is looked up. Dirs are searched
// in order; the bundled default is used when none holds the file.
type Source struct {
	Dirs []string
}

// DefaultSource searches configDir (usually $CLASSIFIER_CONFIG_DIR) and then
// ./config relative to workDir.
func DefaultSource(configDir, workDir string) Source {
	var dirs []string
	if strings.TrimSpace(configDir) != "" {
		dirs = append(dirs, configDir)
	}
	if workDir != "" {
		dirs = append(dirs, filepath.Join(workDir, "config"))
	}
	return Source{Dirs: dirs}
}

// LoadRules reads and compiles the rule configuration. The returned string
// names the file that was used.
func LoadRules(src Source) (domain.RuleSet, string, error) {
	raw, origin, err := src.read(RulesFile)
	if err != nil {
		return nil, "", err
	}
	set, err := ParseRules(raw)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", origin, err)
	}
	return set, origin, nil
}

// ParseRules decodes a YAML rule list and compiles it.
func ParseRules(raw []byte) (domain.RuleSet, error) {
	var records []RawRule
	if err := yaml.Unmarshal(raw, &records); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "decode rules", err)
	}
	return Compile(records)
}

// LoadFiletypes reads the extension to content-type mapping from path, or the
// bundled default when path is empty.
func LoadFiletypes(path string) (domain.FiletypeMap, string, error) {
	var (
		raw    []byte
		origin string
		err    error
	)
	if strings.TrimSpace(path) == "" {
		raw, err = fs.ReadFile(bundled, "defaults/"+FiletypesFile)
		origin = bundledSource
	} else {
		raw, err = os.ReadFile(path)
		origin = path
	}
	if err != nil {
		return nil, "", fmt.Errorf("read filetypes %s: %w", origin, err)
	}

	m, err := ParseFiletypes(raw)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", origin, err)
	}
	return m, origin, nil
}

// ParseFiletypes decodes and validates a filetype mapping. Extensions are
// normalised to lowercase.
func ParseFiletypes(raw []byte) (domain.FiletypeMap, error) {
	var records map[string]any
	if err := yaml.Unmarshal(raw, &records); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "decode filetypes", err)
	}

	out := make(domain.FiletypeMap, len(records))
	for _, ext := range sortedKeys(records) {
		if len(ext) < 2 || !strings.HasPrefix(ext, ".") {
			return nil, &domain.ConfigError{Field: ext, Msg: "invalid extension key"}
		}
		items, ok := records[ext].([]any)
		if !ok {
			return nil, &domain.ConfigError{Field: ext, Msg: "content types must be a list"}
		}
		types := make([]string, 0, len(items))
		for _, item := range items {
			contentType, ok := item.(string)
			if !ok || strings.TrimSpace(contentType) == "" {
				return nil, &domain.ConfigError{Field: ext, Msg: "content types must be non-empty strings"}
			}
			types = append(types, strings.TrimSpace(contentType))
		}
		out[strings.ToLower(ext)] = types
	}
	return out, nil
}

func (s Source) read(name string) ([]byte, string, error) {
	for _, dir := range s.Dirs {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err == nil {
			return raw, path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("read %s: %w", path, err)
		}
	}

	raw, err := fs.ReadFile(bundled, "defaults/"+name)
	if err != nil {
		return nil, "", fmt.Errorf("read bundled %s: %w", name, err)
	}
	return raw, bundledSource, nil
}
