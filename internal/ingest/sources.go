package ingest

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/linkpipe/internal/config"
)

// SourceKind discriminates where a source's links come from.
type SourceKind string

const (
	SourceSheet  SourceKind = "sheet"
	SourceNotion SourceKind = "notion"
	SourceXLSX   SourceKind = "xlsx"
)

// Source is one place to harvest links from.
type Source struct {
	Kind SourceKind `yaml:"kind"`
	// Name labels the source in provenance records. Defaults to the ref.
	Name string `yaml:"name"`
	// Ref is kind-specific: a Google Sheets URL, a Notion page id, or a
	// local .xlsx path.
	Ref string `yaml:"ref"`
}

// sourcesFile is the shape of an optional sources.yaml.
type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources merges inline config entries with an optional sources.yaml.
// File entries come first so curated lists keep their order.
func LoadSources(cfg config.SourcesConfig) ([]Source, error) {
	var out []Source

	if cfg.File != "" {
		raw, err := os.ReadFile(cfg.File)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read sources file %s", cfg.File)
		}
		var sf sourcesFile
		if err := yaml.Unmarshal(raw, &sf); err != nil {
			return nil, eris.Wrapf(err, "ingest: parse sources file %s", cfg.File)
		}
		for _, s := range sf.Sources {
			if err := validateSource(s); err != nil {
				return nil, err
			}
			out = append(out, withDefaults(s))
		}
	}

	for _, u := range cfg.SheetURLs {
		out = append(out, withDefaults(Source{Kind: SourceSheet, Ref: u}))
	}
	for _, p := range cfg.NotionPages {
		out = append(out, withDefaults(Source{Kind: SourceNotion, Ref: p}))
	}
	for _, p := range cfg.XLSXPaths {
		out = append(out, withDefaults(Source{Kind: SourceXLSX, Ref: p}))
	}

	return out, nil
}

func validateSource(s Source) error {
	switch s.Kind {
	case SourceSheet, SourceNotion, SourceXLSX:
	default:
		return eris.Errorf("ingest: unknown source kind %q", s.Kind)
	}
	if s.Ref == "" {
		return eris.Errorf("ingest: %s source with empty ref", s.Kind)
	}
	return nil
}

func withDefaults(s Source) Source {
	if s.Name == "" {
		s.Name = fmt.Sprintf("%s:%s", s.Kind, s.Ref)
	}
	return s
}
