// Package domain defines the core domain models for the hearing service.
package domain

// Role is the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Label returns the display label used when rendering transcripts.
func (r Role) Label() string {
	switch r {
	case RoleUser:
		return "ユーザー"
	case RoleAssistant:
		return "AI"
	default:
		return "システム"
	}
}

// SeedSource records which branch of seed resolution produced a conversation.
type SeedSource string

const (
	SeedSourceMessages SeedSource = "messages"
	SeedSourceTemplate SeedSource = "template"
	SeedSourceDefault  SeedSource = "default"
)

// ModelSource records which candidate supplied the model name.
type ModelSource string

const (
	ModelSourceTemplate ModelSource = "template"
	ModelSourceConfig   ModelSource = "config"
	ModelSourceFallback ModelSource = "fallback"
)
