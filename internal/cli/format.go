// Package cli holds output helpers shared by the finalkey commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/remiblancher/finalkey/pkg/native"
)

// Format is an output encoding for a Status.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
)

// Formats lists the supported output formats.
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatCBOR}

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatText, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format %q (supported: text, json, yaml, cbor)", s)
}

// Render writes s to w in the given format. Text output is colored when
// color is true.
func Render(w io.Writer, s native.Status, format Format, color bool) error {
	switch format {
	case FormatText, "":
		return renderText(w, s, color)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case FormatCBOR:
		data, err := MarshalCBOR(s)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// MarshalCBOR encodes s with the core deterministic encoding.
func MarshalCBOR(s native.Status) ([]byte, error) {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}
	data, err := em.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode status: %w", err)
	}
	return data, nil
}

func renderText(w io.Writer, s native.Status, color bool) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Library:     %s\n", s.Library)
	fmt.Fprintf(&b, "Platform:    %s\n", s.Platform)
	fmt.Fprintf(&b, "State:       %s\n", FormatState(string(s.State), color))
	if s.State == native.StateChecked {
		fmt.Fprintf(&b, "Status:      %s\n", FormatAvailability(s.Available, color))
	}
	if s.Path != "" {
		fmt.Fprintf(&b, "Path:        %s\n", s.Path)
	}
	if s.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", s.Description)
	}
	if s.Reason != "" {
		fmt.Fprintf(&b, "Reason:      %s\n", s.Reason)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
