package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// Format is a document serialization.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
)

// ParseFormat accepts json, yaml (or yml), and cbor.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "cbor":
		return FormatCBOR, nil
	}
	return "", fmt.Errorf("unknown document format %q", s)
}

// FormatFromPath picks a format from a file extension, falling back to def.
func FormatFromPath(path string, def Format) Format {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if f, err := ParseFormat(ext); err == nil {
		return f
	}
	return def
}

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	// Core deterministic encoding: the same document always produces the
	// same bytes.
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("render: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic("render: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal serializes doc. JSON and YAML output is indented and ends with a
// newline.
func Marshal(doc *Document, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal json: %w", err)
		}
		return append(out, '\n'), nil

	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}
		return buf.Bytes(), nil

	case FormatCBOR:
		out, err := cborEnc.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("marshal cbor: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown document format %q", f)
}

// Unmarshal parses a document. Unknown fields are rejected in every format.
func Unmarshal(data []byte, f Format) (*Document, error) {
	var doc Document
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: json: %w", ErrInvalidDocument, err)
		}

	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: yaml: %w", ErrInvalidDocument, err)
		}

	case FormatCBOR:
		if err := cborDec.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: cbor: %w", ErrInvalidDocument, err)
		}

	default:
		return nil, fmt.Errorf("unknown document format %q", f)
	}
	return &doc, nil
}
