// Package credentials keeps provider tokens in the database so a worker
// started without them in its environment can still reach the providers.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"neomentor/internal/infra"
	"neomentor/internal/sqlinline"
)

// Provider names a credential and the environment variable that overrides it.
type Provider struct {
	Name   string
	EnvVar string
}

var (
	Gemini     = Provider{Name: "gemini", EnvVar: "GEMINI_API_KEY"}
	OpenAI     = Provider{Name: "openai", EnvVar: "OPENAI_API_KEY"}
	VoiceClone = Provider{Name: "voice_clone", EnvVar: "VOICE_CLONE_URL"}
)

// Providers lists every provider a token can be stored for.
var Providers = []Provider{Gemini, OpenAI, VoiceClone}

var ErrUnknownProvider = errors.New("credentials: unknown provider")

// Lookup finds a provider by name, ignoring case and surrounding space.
func Lookup(name string) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range Providers {
		if p.Name == name {
			return p, nil
		}
	}
	return Provider{}, fmt.Errorf("%w %q", ErrUnknownProvider, name)
}

// Stored describes a saved token without exposing it.
type Stored struct {
	Provider   string
	Properties map[string]any
	UpdatedAt  time.Time
}

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Token returns the stored token, or "" when none is stored.
func (s *Store) Token(ctx context.Context, p Provider) (string, error) {
	var token string
	err := s.sql.QueryRow(ctx, sqlinline.QSelectProviderToken, p.Name).Scan(&token)
	switch {
	case infra.IsNoRows(err):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("credentials: load %s token: %w", p.Name, err)
	}
	return strings.TrimSpace(token), nil
}

// Resolve returns configured when set and the stored token otherwise. A nil
// store resolves to configured alone.
func (s *Store) Resolve(ctx context.Context, p Provider, configured string) (string, error) {
	if v := strings.TrimSpace(configured); v != "" {
		return v, nil
	}
	if s == nil {
		return "", nil
	}
	return s.Token(ctx, p)
}

// Save upserts the token. props are merged into the stored properties.
func (s *Store) Save(ctx context.Context, p Provider, token string, props map[string]any) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("credentials: empty %s token", p.Name)
	}
	if props == nil {
		props = map[string]any{}
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return err
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QSaveProviderToken, p.Name, token, raw); err != nil {
		return fmt.Errorf("credentials: save %s token: %w", p.Name, err)
	}
	return nil
}

// List reports which providers have a stored token.
func (s *Store) List(ctx context.Context) ([]Stored, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QListProviderTokens)
	if err != nil {
		return nil, fmt.Errorf("credentials: list tokens: %w", err)
	}
	defer rows.Close()

	var out []Stored
	for rows.Next() {
		var (
			st  Stored
			raw []byte
		)
		if err := rows.Scan(&st.Provider, &raw, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("credentials: scan token row: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &st.Properties); err != nil {
				return nil, fmt.Errorf("credentials: decode %s properties: %w", st.Provider, err)
			}
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
