package layout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// =============================================================================
// Computed Zone Serialization API
// =============================================================================

// Zones is the canonical serialization format for a computed layout.
// Used for API responses, caching, and handoff between pipeline stages.
type Zones struct {
	TemplateID string         `json:"template_id" bson:"template_id"`
	Width      int            `json:"width" bson:"width"`
	Height     int            `json:"height" bson:"height"`
	Zones      []ComputedZone `json:"zones" bson:"zones"`
}

// MarshalZones serializes a computed zone list to pretty-printed JSON bytes.
func MarshalZones(z Zones) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(z); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalZones deserializes JSON bytes into a computed zone list.
func UnmarshalZones(data []byte) (Zones, error) {
	var z Zones
	if err := json.Unmarshal(data, &z); err != nil {
		return Zones{}, fmt.Errorf("decode zones: %w", err)
	}
	return z, nil
}

// WriteZonesFile writes a computed zone list to a JSON file.
// The file is created with 0644 permissions.
func WriteZonesFile(z Zones, path string) error {
	data, err := MarshalZones(z)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadZonesFile reads a computed zone list from a JSON file.
func ReadZonesFile(path string) (Zones, error) {
	f, err := os.Open(path)
	if err != nil {
		return Zones{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readZonesFrom(f)
}

func readZonesFrom(r io.Reader) (Zones, error) {
	var z Zones
	if err := json.NewDecoder(r).Decode(&z); err != nil {
		return Zones{}, fmt.Errorf("decode: %w", err)
	}
	return z, nil
}
