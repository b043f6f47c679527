package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
)

// Defaults applied by the Get* accessors when a field is unset.
const (
	DefaultEngineBackend  = "soft"
	DefaultSceneNamespace = "main"
	DefaultTargetFPS      = 30.0
)

// CompositorConfig is the on-disk configuration of the compositor filter
// and its host. Every field is optional; the Get* methods supply defaults,
// so partial files are safe.
type CompositorConfig struct {
	// Engine
	EngineBackend *string  `json:"engine_backend,omitempty"`
	TargetFPS     *float64 `json:"target_fps,omitempty"`
	DrawNoWait    *bool    `json:"draw_no_wait,omitempty"`

	// Scene
	SceneNamespace *string `json:"scene_namespace,omitempty"`

	// Cycle journal
	StatsDBPath  *string `json:"stats_db_path,omitempty"`
	RecordCycles *bool   `json:"record_cycles,omitempty"`

	// Host surfaces
	DebugListen  *string `json:"debug_listen,omitempty"`
	HealthListen *string `json:"health_listen,omitempty"`
}

func ptrString(v string) *string    { return &v }
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }

// EmptyCompositorConfig returns a config with every field unset.
func EmptyCompositorConfig() *CompositorConfig {
	return &CompositorConfig{}
}

// DefaultCompositorConfig returns a config with every field set to its
// default value.
func DefaultCompositorConfig() *CompositorConfig {
	return &CompositorConfig{
		EngineBackend:  ptrString(DefaultEngineBackend),
		TargetFPS:      ptrFloat64(DefaultTargetFPS),
		DrawNoWait:     ptrBool(false),
		SceneNamespace: ptrString(DefaultSceneNamespace),
		StatsDBPath:    ptrString(""),
		RecordCycles:   ptrBool(true),
		DebugListen:    ptrString(""),
		HealthListen:   ptrString(""),
	}
}

// LoadCompositorConfig reads a CompositorConfig from a JSON file. The file
// must have a .json extension and be at most 1MB.
func LoadCompositorConfig(path string) (*CompositorConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyCompositorConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *CompositorConfig) Validate() error {
	if c.TargetFPS != nil {
		if *c.TargetFPS <= 0 || *c.TargetFPS > 1000 {
			return fmt.Errorf("target_fps must be in (0, 1000], got %f", *c.TargetFPS)
		}
	}
	if c.EngineBackend != nil && *c.EngineBackend == "" {
		return fmt.Errorf("engine_backend must not be empty")
	}
	if c.SceneNamespace != nil && *c.SceneNamespace == "" {
		return fmt.Errorf("scene_namespace must not be empty")
	}
	if c.StatsDBPath != nil && *c.StatsDBPath != "" && *c.StatsDBPath != ":memory:" {
		if filepath.Ext(*c.StatsDBPath) != ".db" {
			return fmt.Errorf("stats_db_path must have .db extension, got %q", *c.StatsDBPath)
		}
	}
	return nil
}

// GetEngineBackend returns the engine module name or the default.
func (c *CompositorConfig) GetEngineBackend() string {
	if c.EngineBackend == nil || *c.EngineBackend == "" {
		return DefaultEngineBackend
	}
	return *c.EngineBackend
}

// GetTargetFPS returns the target frame rate or the default.
func (c *CompositorConfig) GetTargetFPS() float64 {
	if c.TargetFPS == nil || *c.TargetFPS <= 0 {
		return DefaultTargetFPS
	}
	return *c.TargetFPS
}

// GetDrawNoWait returns the draw_no_wait value or the default.
func (c *CompositorConfig) GetDrawNoWait() bool {
	if c.DrawNoWait == nil {
		return false
	}
	return *c.DrawNoWait
}

// GetSceneNamespace returns the scene namespace name or the default.
func (c *CompositorConfig) GetSceneNamespace() string {
	if c.SceneNamespace == nil || *c.SceneNamespace == "" {
		return DefaultSceneNamespace
	}
	return *c.SceneNamespace
}

// GetStatsDBPath returns the journal database path; empty disables the
// journal.
func (c *CompositorConfig) GetStatsDBPath() string {
	if c.StatsDBPath == nil {
		return ""
	}
	return *c.StatsDBPath
}

// GetRecordCycles returns the record_cycles value or the default.
func (c *CompositorConfig) GetRecordCycles() bool {
	if c.RecordCycles == nil {
		return true
	}
	return *c.RecordCycles
}

// GetDebugListen returns the debug HTTP listen address; empty disables it.
func (c *CompositorConfig) GetDebugListen() string {
	if c.DebugListen == nil {
		return ""
	}
	return *c.DebugListen
}

// GetHealthListen returns the gRPC health listen address; empty disables it.
func (c *CompositorConfig) GetHealthListen() string {
	if c.HealthListen == nil {
		return ""
	}
	return *c.HealthListen
}

// Store is the configuration store handed to a filter instance. It scopes
// one config and one session id to the instance's lifetime.
type Store struct {
	cfg       *CompositorConfig
	sessionID string
	released  atomic.Bool
}

// NewStore wraps cfg. A nil cfg behaves as an empty config.
func NewStore(cfg *CompositorConfig) *Store {
	if cfg == nil {
		cfg = EmptyCompositorConfig()
	}
	return &Store{cfg: cfg, sessionID: uuid.NewString()}
}

// OpenStore loads path and wraps the result in a Store.
func OpenStore(path string) (*Store, error) {
	cfg, err := LoadCompositorConfig(path)
	if err != nil {
		return nil, err
	}
	return NewStore(cfg), nil
}

// Config returns the wrapped config.
func (s *Store) Config() *CompositorConfig { return s.cfg }

// SessionID identifies the filter instance the store was created for.
func (s *Store) SessionID() string { return s.sessionID }

// Release marks the store as no longer in use.
func (s *Store) Release() { s.released.Store(true) }

// Released reports whether Release was called.
func (s *Store) Released() bool { return s.released.Load() }
