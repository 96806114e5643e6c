package segment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/internal/indexer/index"
)

// ReadManifest reads the manifest of a language directory.
func ReadManifest(dir string) (*Manifest, error) {
	var m Manifest
	if err := readJSONFile(filepath.Join(dir, ManifestFile), &m); err != nil {
		return nil, err
	}
	if m.Version != Version {
		return nil, fmt.Errorf("manifest %s: unsupported version %q", dir, m.Version)
	}
	return &m, nil
}

// ReadGlobal reads the root manifest of a build.
func ReadGlobal(root string) (*GlobalManifest, error) {
	var gm GlobalManifest
	if err := readJSONFile(filepath.Join(root, ManifestFile), &gm); err != nil {
		return nil, err
	}
	return &gm, nil
}

// Load reads every chunk listed by the manifest in dir and rebuilds the
// tables.
func Load(dir string) (*index.Tables, *Manifest, error) {
	m, err := ReadManifest(dir)
	if err != nil {
		return nil, nil, err
	}
	t := index.NewTables()
	for _, section := range index.SectionNames {
		for _, name := range m.Sections[section] {
			var entries []json.RawMessage
			if err := readJSONFile(filepath.Join(dir, name), &entries); err != nil {
				return nil, nil, err
			}
			for i, e := range entries {
				if err := t.LoadEntry(section, e); err != nil {
					return nil, nil, fmt.Errorf("%s entry %d: %w", name, i, err)
				}
			}
		}
	}
	return t, m, nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
