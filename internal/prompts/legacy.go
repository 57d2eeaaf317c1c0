package prompts

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kalambet/thoth/internal/errs"
)

// legacyPrompt is one entry of the prompts.json file written by earlier
// desktop releases.
type legacyPrompt struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Template  string `json:"template"`
	IsBuiltin bool   `json:"isBuiltin"`
}

// ImportResult reports what ImportLegacy did with each entry.
type ImportResult struct {
	Imported []Template
	// Skipped maps a legacy label to the reason it was not imported.
	Skipped map[string]string
}

// LegacyPath returns the default location of the legacy prompts file.
func LegacyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".thoth", "prompts.json")
}

// ImportLegacy reads a legacy prompts.json array and saves each custom entry
// through SaveCustom. Built-in entries and entries that fail validation or
// clash with an existing label are skipped, not fatal.
func (c *Catalog) ImportLegacy(r io.Reader) (ImportResult, error) {
	var entries []legacyPrompt
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return ImportResult{}, fmt.Errorf("decoding legacy prompts: %w", err)
	}

	res := ImportResult{Skipped: make(map[string]string)}
	for _, e := range entries {
		label := e.Name
		if label == "" {
			label = e.ID
		}
		if e.IsBuiltin {
			res.Skipped[label] = "built-in"
			continue
		}
		t, err := c.SaveCustom(label, e.Template, ContextFlags{})
		if err != nil {
			if k := errs.KindOf(err); k == errs.InvalidTemplate || k == errs.DuplicateLabel {
				res.Skipped[label] = k.String()
				continue
			}
			return res, err
		}
		res.Imported = append(res.Imported, t)
	}
	return res, nil
}
