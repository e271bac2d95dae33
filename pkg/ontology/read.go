package ontology

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	errs "github.com/matzehuels/ontograph/pkg/errors"
)

// Format identifies a snapshot document encoding.
type Format string

// Snapshot document formats.
const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DetectFormat sniffs the encoding of a snapshot document from its first
// non-blank byte: '{' or '[' is JSON, anything else is treated as YAML.
func DetectFormat(data []byte) Format {
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FormatJSON
	}
	return FormatYAML
}

// FormatFromPath returns the format implied by a file extension, or
// [FormatAuto] if the extension is not recognized.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatAuto
	}
}

// Read decodes a snapshot document from r.
//
// With [FormatAuto] the encoding is detected with [DetectFormat]. Every
// class, property and individual must carry a non-empty id; properties
// without a type default to [AnnotationProperty]. Relations that point to
// unknown ids are kept as-is: resolving them is the graph view's job.
//
// Read does not close r.
func Read(r io.Reader, format Format) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "read snapshot")
	}
	if format == FormatAuto {
		format = DetectFormat(data)
	}

	var s Snapshot
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &s)
	case FormatYAML:
		err = yaml.Unmarshal(data, &s)
	default:
		return nil, errs.New(errs.ErrCodeInvalidFormat, "unsupported snapshot format: %s", format)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidSnapshot, err, "decode %s snapshot", format)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ReadFile reads a snapshot document from path. The format is taken from the
// extension when recognized and sniffed from the content otherwise.
func ReadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "open %s", path)
	}
	defer f.Close()

	s, err := Read(f, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// WriteJSON encodes s as indented JSON. The output can be re-read with [Read].
func WriteJSON(s *Snapshot, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func (s *Snapshot) validate() error {
	for i, c := range s.Classes {
		if c.ID == "" {
			return errs.New(errs.ErrCodeInvalidSnapshot, "class %d has no id", i)
		}
	}
	for i := range s.Properties {
		p := &s.Properties[i]
		if p.ID == "" {
			return errs.New(errs.ErrCodeInvalidSnapshot, "property %d has no id", i)
		}
		if p.Type == "" {
			p.Type = AnnotationProperty
		}
	}
	for i, ind := range s.Individuals {
		if ind.ID == "" {
			return errs.New(errs.ErrCodeInvalidSnapshot, "individual %d has no id", i)
		}
	}
	return nil
}
