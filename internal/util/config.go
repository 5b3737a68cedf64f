package util

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultLibDir     = "lisb"
	DefaultLibExt     = "l"
	DefaultMaxDepth   = 10000
	DefaultLuaCommand = "lua"
	DefaultLuaDir     = "src"
	DefaultConfigFile = "lxsp.toml"
	ConfigEnvVar      = "LXSP_CONFIG"
)

type Configuration struct {
	Version   string `toml:"-"`
	BuildDate string `toml:"-"`
	Commit    string `toml:"-"`

	LibDir    string   `toml:"lib_dir"`
	LibExt    string   `toml:"lib_ext"`
	NoStd     bool     `toml:"no_std"`
	Load      []string `toml:"load"`
	MacroPass bool     `toml:"macro_pass"`
	Reduce    bool     `toml:"reduce"`
	MaxDepth  int      `toml:"max_depth"`

	LuaCommand string   `toml:"lua_command"`
	LuaDir     string   `toml:"lua_dir"`
	LuaTimeout Duration `toml:"lua_timeout"`
	DBTimeout  Duration `toml:"db_timeout"`

	HistoryFile string `toml:"history_file"`
}

// Duration decodes TOML strings such as "1500ms" or "2s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func DefaultConfiguration() Configuration {
	history := ""
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, ".lxsp_history")
	}
	return Configuration{
		LibDir:      DefaultLibDir,
		LibExt:      DefaultLibExt,
		MacroPass:   true,
		MaxDepth:    DefaultMaxDepth,
		LuaCommand:  DefaultLuaCommand,
		LuaDir:      DefaultLuaDir,
		HistoryFile: history,
	}
}

// ResolveConfigPath picks the explicit path, then $LXSP_CONFIG, then
// lxsp.toml in the working directory. The last one is only returned when it
// exists; an empty result means there is no file to load.
func ResolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(ConfigEnvVar); env != "" {
		return env
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile
	}
	return ""
}

// LoadConfiguration overlays the TOML file at path onto base. Keys absent
// from the file keep the value from base. An empty path returns base.
func LoadConfiguration(path string, base Configuration) (Configuration, error) {
	if path == "" {
		return base, nil
	}
	cfg := base
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return base, fmt.Errorf("config file %s not found: %w", path, err)
		}
		return base, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return base, fmt.Errorf("unknown keys in config %s: %v", path, undecoded)
	}
	if cfg.MaxDepth <= 0 {
		return base, fmt.Errorf("max_depth must be positive, got %d", cfg.MaxDepth)
	}
	return cfg, nil
}
