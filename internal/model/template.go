package model

import (
	"fmt"
	"strings"
	"time"
)

// FieldType enumerates the supported metadata field kinds.
type FieldType string

const (
	FieldText        FieldType = "text"
	FieldMultiline   FieldType = "multiline"
	FieldNumber      FieldType = "number"
	FieldDate        FieldType = "date"
	FieldDropdown    FieldType = "dropdown"
	FieldCheckbox    FieldType = "checkbox"
	FieldEmail       FieldType = "email"
	FieldURL         FieldType = "url"
	FieldCurrency    FieldType = "currency"
	FieldMultiSelect FieldType = "multi_select"
)

// MetadataField is a single typed field definition within a template.
// Name is the stable internal key used in value maps; Label is what a UI
// would display.
type MetadataField struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Label        string    `json:"label"`
	Type         FieldType `json:"type"`
	Required     bool      `json:"required,omitempty"`
	DefaultValue string    `json:"default_value,omitempty"`
	Placeholder  string    `json:"placeholder,omitempty"`
	HelpText     string    `json:"help_text,omitempty"`
	Options      []string  `json:"options,omitempty"`
	DisplayOrder int       `json:"display_order,omitempty"`
}

// Clone returns a copy of the field with a fresh id.
func (f MetadataField) Clone() MetadataField {
	out := f
	out.ID = NewID()
	out.Options = append([]string(nil), f.Options...)
	return out
}

// MetadataTemplate is a named, ordered set of field definitions. Built-in
// templates are constructed in memory on every start, are never written to
// disk, and cannot be edited or deleted, only duplicated.
type MetadataTemplate struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Fields      []MetadataField `json:"fields"`
	BuiltIn     bool            `json:"built_in,omitempty"`
	Created     time.Time       `json:"created"`
	Modified    time.Time       `json:"modified"`
	UsageCount  int             `json:"usage_count,omitempty"`
}

// Clone returns a non-built-in copy with fresh ids and a "(Copy)" suffix.
func (t *MetadataTemplate) Clone() *MetadataTemplate {
	now := time.Now().UTC()
	out := &MetadataTemplate{
		ID:          NewID(),
		Name:        t.Name + " (Copy)",
		Description: t.Description,
		Category:    t.Category,
		Created:     now,
		Modified:    now,
	}
	for _, f := range t.Fields {
		out.Fields = append(out.Fields, f.Clone())
	}
	return out
}

// Validate returns human-readable problems with the template definition.
// Field names must be unique case-insensitively since they key value maps.
func (t *MetadataTemplate) Validate() []string {
	var errs []string

	if strings.TrimSpace(t.Name) == "" {
		errs = append(errs, "template name is required")
	}
	if len(t.Fields) == 0 {
		errs = append(errs, "template must have at least one field")
	}

	seen := make(map[string]bool, len(t.Fields))
	for _, f := range t.Fields {
		if strings.TrimSpace(f.Name) == "" {
			errs = append(errs, "all fields must have a name")
			continue
		}
		key := strings.ToLower(f.Name)
		if seen[key] {
			errs = append(errs, fmt.Sprintf("duplicate field name: %s", f.Name))
		}
		seen[key] = true
	}

	return errs
}
