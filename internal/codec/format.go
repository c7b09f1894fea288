package codec

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"inpaint/internal/image"
)

// Format selects the document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml, or yml in any case.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown document format %q (want json or yaml)", value)
	}
}

// FormatForPath picks the format from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Encode writes doc to w.
func Encode(w io.Writer, doc Document, format Format) error {
	if doc.Sources == nil {
		doc.Sources = []SourceEntry{}
	}
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(doc)
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(doc); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf("unsupported document format %q", format)
	}
}

// Decode reads a document from r. Unknown fields are rejected.
func Decode(r io.Reader, format Format) (Document, error) {
	var doc Document
	switch format {
	case FormatJSON:
		decoder := json.NewDecoder(r)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&doc); err != nil {
			return Document{}, fmt.Errorf("decode json document: %w", err)
		}
	case FormatYAML:
		decoder := yaml.NewDecoder(r)
		decoder.KnownFields(true)
		if err := decoder.Decode(&doc); err != nil && err != io.EOF {
			return Document{}, fmt.Errorf("decode yaml document: %w", err)
		}
	default:
		return Document{}, fmt.Errorf("unsupported document format %q", format)
	}
	applyDefaults(&doc)
	return doc, nil
}

// applyDefaults fills fields hand-written documents commonly leave out.
func applyDefaults(doc *Document) {
	for i := range doc.Sources {
		entry := &doc.Sources[i]
		if entry.Tags == nil {
			entry.Tags = []string{}
		}
		for j := range entry.Targets {
			tgt := &entry.Targets[j]
			if tgt.Sampler == "" {
				tgt.Sampler = image.DefaultSampler
			}
			if tgt.Checkpoint == "" {
				tgt.Checkpoint = image.DefaultCheckpoint
			}
		}
	}
}
