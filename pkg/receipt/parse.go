package receipt

import (
	"encoding/json"
	"fmt"
	"os"
)

// Parse parses receipt JSON and validates it
func Parse(data []byte) (*Data, error) {
	var r Data
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse receipt: %w", err)
	}

	if err := Validate(&r); err != nil {
		return nil, err
	}

	return &r, nil
}

// ParseFile parses a receipt JSON file from disk
func ParseFile(path string) (*Data, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt file: %w", err)
	}

	return Parse(data)
}

// ToJSON converts the receipt to indented JSON
func (d *Data) ToJSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}
