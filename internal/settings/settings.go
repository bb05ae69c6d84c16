package settings

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pokerjest/showshelf/internal/render"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Settings are the user choices persisted between runs in data/config.json.
type Settings struct {
	OutputPath string       `json:"output_path" mapstructure:"output_path"`
	Theme      render.Theme `json:"theme" mapstructure:"theme"`
}

// Store reads and writes the settings file on an afero filesystem.
type Store struct {
	fs          afero.Fs
	path        string
	defaultPath string

	mu sync.Mutex
}

// NewStore binds the settings file at path; defaultOutput is used when no output path was saved.
func NewStore(fs afero.Fs, path, defaultOutput string) *Store {
	return &Store{fs: fs, path: path, defaultPath: defaultOutput}
}

func (s *Store) newViper() *viper.Viper {
	v := viper.New()
	v.SetFs(s.fs)
	v.SetConfigFile(s.path)
	v.SetConfigType("json")

	def := render.DefaultTheme()
	v.SetDefault("output_path", s.defaultPath)
	v.SetDefault("theme.brand", def.Brand)
	v.SetDefault("theme.card", def.Card)
	v.SetDefault("theme.bg", def.BG)
	return v
}

func (s *Store) defaults() Settings {
	return Settings{OutputPath: s.defaultPath, Theme: render.DefaultTheme()}
}

// Load never fails on a missing or malformed file; it falls back to defaults.
func (s *Store) Load() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.newViper()
	if err := v.ReadInConfig(); err != nil {
		return s.defaults()
	}
	var out Settings
	if err := v.Unmarshal(&out); err != nil {
		return s.defaults()
	}
	if strings.TrimSpace(out.OutputPath) == "" {
		out.OutputPath = s.defaultPath
	}
	out.Theme = out.Theme.Normalize()
	return out
}

// Save writes the settings, creating the data directory when needed.
func (s *Store) Save(in Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	v := s.newViper()
	v.Set("output_path", strings.TrimSpace(in.OutputPath))
	v.Set("theme.brand", strings.TrimSpace(in.Theme.Brand))
	v.Set("theme.card", strings.TrimSpace(in.Theme.Card))
	v.Set("theme.bg", strings.TrimSpace(in.Theme.BG))
	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
