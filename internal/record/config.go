package record

import (
	"encoding/json"
	"fmt"
)

// EntryConfig is the variant payload stored in artifact_entries.config_json.
// Kind is one of document, section_break, cover_page or divider.
type EntryConfig struct {
	Kind         string `json:"kind"`
	Description  string `json:"description,omitempty"`
	Date         string `json:"date,omitempty"`
	ExhibitLabel string `json:"exhibit_label,omitempty"`
	Disputed     bool   `json:"disputed,omitempty"`
	SectionLabel string `json:"section_label,omitempty"`
	PageCount    int    `json:"page_count,omitempty"`
}

// toMap drops zero values so that the canonical form matches omitempty.
func (c EntryConfig) toMap() map[string]any {
	m := map[string]any{"kind": c.Kind}
	if c.Description != "" {
		m["description"] = c.Description
	}
	if c.Date != "" {
		m["date"] = c.Date
	}
	if c.ExhibitLabel != "" {
		m["exhibit_label"] = c.ExhibitLabel
	}
	if c.Disputed {
		m["disputed"] = true
	}
	if c.SectionLabel != "" {
		m["section_label"] = c.SectionLabel
	}
	if c.PageCount != 0 {
		m["page_count"] = c.PageCount
	}
	return m
}

// MarshalConfig encodes a config payload as canonical JSON after checking it
// against the config schema.
func MarshalConfig(c EntryConfig) (string, error) {
	b, err := MarshalCanonical(c.toMap())
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	if err := ValidateConfig(b); err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseConfig decodes a config_json payload. An empty payload yields the
// zero config.
func ParseConfig(s string) (EntryConfig, error) {
	var c EntryConfig
	if s == "" {
		return c, nil
	}
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return c, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}
