// Package json reads and writes conversation transcripts as versioned JSON
// files.
package json

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/ochat"
)

const envelopeVersion = 1

// envelope is the v1 wire format for an exported transcript.
type envelope struct {
	Version      int       `json:"version"`
	ID           int64     `json:"id"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	ExportedAt   time.Time `json:"exported_at"`
	Turns        []turnDTO `json:"turns"`
}

// turnDTO is the JSON representation of a Turn.
type turnDTO struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Marshal serializes a Transcript to JSON in v1 envelope format.
func Marshal(t ochat.Transcript) ([]byte, error) {
	env := envelope{
		Version:      envelopeVersion,
		ID:           int64(t.ID),
		SystemPrompt: t.SystemPrompt,
		ExportedAt:   t.ExportedAt,
		Turns:        make([]turnDTO, len(t.Turns)),
	}
	for i, turn := range t.Turns {
		if !turn.Role.Valid() {
			return nil, fmt.Errorf("turn %d: unknown role %q", i, turn.Role)
		}
		env.Turns[i] = turnDTO{
			Role:      string(turn.Role),
			Content:   turn.Content,
			CreatedAt: turn.CreatedAt,
		}
	}
	return json.MarshalIndent(env, "", "  ")
}

// Unmarshal deserializes a Transcript from JSON in v1 envelope format.
// Turn ids are not part of the format and are left zero.
func Unmarshal(data []byte) (ochat.Transcript, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ochat.Transcript{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != envelopeVersion {
		return ochat.Transcript{}, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	id := ochat.ConversationID(env.ID)
	turns := make([]ochat.Turn, len(env.Turns))
	for i, dto := range env.Turns {
		role, err := ochat.ParseRole(dto.Role)
		if err != nil {
			return ochat.Transcript{}, fmt.Errorf("turn %d: %w", i, err)
		}
		turns[i] = ochat.Turn{
			ConversationID: id,
			Role:           role,
			Content:        dto.Content,
			CreatedAt:      dto.CreatedAt,
		}
	}
	return ochat.Transcript{
		ID:           id,
		SystemPrompt: env.SystemPrompt,
		ExportedAt:   env.ExportedAt,
		Turns:        turns,
	}, nil
}

// Save writes a Transcript to a JSON file, creating parent directories as
// needed. The file is replaced atomically.
func Save(path string, t ochat.Transcript) error {
	data, err := Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads a Transcript from a JSON file.
func Load(path string) (ochat.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ochat.Transcript{}, fmt.Errorf("read file: %w", err)
	}
	return Unmarshal(data)
}
