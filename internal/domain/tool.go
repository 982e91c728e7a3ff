// Package domain contains core domain types for the tool orchestration proxy.
package domain

import "strings"

// FieldType describes the semantic type of a tool input field.
type FieldType string

const (
	FieldTypeString   FieldType = "string"
	FieldTypeEmail    FieldType = "email"
	FieldTypeDatetime FieldType = "datetime"
	FieldTypeObject   FieldType = "object"
)

// InputField describes one input accepted by a tool.
type InputField struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Description string    `json:"description,omitempty"`
}

// ToolDescriptor identifies one externally invocable capability.
// Descriptors are immutable once returned by discovery; the upstream catalog
// is the source of truth and descriptors are never cached across sessions.
type ToolDescriptor struct {
	Slug        string       `json:"tool_slug"`
	Toolkit     string       `json:"toolkit"`
	Description string       `json:"description,omitempty"`
	InputFields []InputField `json:"input_fields,omitempty"`
}

// ToolkitFromSlug derives the owning application from a tool slug.
// Slugs follow the TOOLKIT_ACTION convention (e.g. GMAIL_SEND_EMAIL -> gmail).
func ToolkitFromSlug(slug string) string {
	if i := strings.IndexByte(slug, '_'); i > 0 {
		return strings.ToLower(slug[:i])
	}
	return strings.ToLower(slug)
}
