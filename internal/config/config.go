package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultURL        = "http://localhost:7708/upload_data"
	DefaultFilename   = "postit2.c"
	DefaultImageLabel = "img.jpg"
	DefaultAddr       = ":7708"
	DefaultInstance   = "postit-collector"
	// relative to the working directory of each run
	DefaultSaveDir = "received"
	appConfDir     = ".postit"
	appConfFile    = "config.toml"
)

// Environment keys, read after an optional .env file is loaded
const (
	EnvURL     = "POSTIT_URL"
	EnvFile    = "POSTIT_FILE"
	EnvAddr    = "POSTIT_ADDR"
	EnvSaveDir = "POSTIT_SAVE_DIR"
)

type UploadConfig struct {
	URL string `toml:"url"`
	// path of the image read from disk
	File string `toml:"file"`
	// value of the "filename" text field
	Filename string `toml:"filename"`
	// file name label of the "image" part
	ImageLabel string `toml:"image_label"`
}

type CollectorConfig struct {
	Addr     string `toml:"addr"`
	SaveDir  string `toml:"save_dir"`
	Instance string `toml:"instance"`
	Publish  bool   `toml:"publish"`
}

type Config struct {
	Upload    UploadConfig    `toml:"upload"`
	Collector CollectorConfig `toml:"collector"`
}

// Read loads the configuration without touching the filesystem beyond reading.
// An empty path means the user's config file. When that file, or the user config
// directory itself, does not exist the defaults are used.
// Environment overrides are applied on top of the file values.
func Read(path string) (Config, error) {
	if path == "" {
		d, err := os.UserConfigDir()
		if err != nil {
			return applyEnv(defaultConfig())
		}
		path = filepath.Join(d, appConfDir, appConfFile)
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return applyEnv(defaultConfig())
		}
		return Config{}, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	cfg, err := readConfig(f)
	if err != nil {
		return Config{}, err
	}
	return applyEnv(cfg)
}

// Load loads the configuration from the user's config file.
// if not exists, it creates a new config file with default values.
func Load() (Config, error) {
	dir, err := GetDir()
	if err != nil {
		return Config{}, err
	}
	return LoadFile(filepath.Join(dir, appConfFile))
}

// LoadFile loads the configuration from path, creating it with default values if it does not exist.
// Environment overrides are applied on top of the file values.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("opening config file: %w", err)
		}
		cfg := defaultConfig()
		if err = saveFile(path, cfg); err != nil {
			return Config{}, fmt.Errorf("config file not exists, writing default config: %w", err)
		}
		return applyEnv(cfg)
	}
	defer f.Close()

	cfg, err := readConfig(f)
	if err != nil {
		return Config{}, err
	}
	return applyEnv(cfg)
}

// GetDir returns the user config directory path, if not exists, it creates it.
func GetDir() (string, error) {
	d, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config directory look-up: %v", err)
	}
	d = filepath.Join(d, appConfDir)
	// "If path is already a directory, MkdirAll does nothing and returns nil"
	if err = os.MkdirAll(d, 0o750); err != nil {
		return "", fmt.Errorf("creating user config directory: %v", err)
	}
	return d, nil
}

func saveFile(path string, c Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating/truncating config file: %w", err)
	}
	defer f.Close()
	if err = writeConfig(f, c); err != nil {
		return fmt.Errorf("writing config to file: %w", err)
	}
	return nil
}

// defaultConfig keeps paths relative, they resolve against the working directory of each run
func defaultConfig() Config {
	return Config{
		Upload: UploadConfig{
			URL:        DefaultURL,
			File:       DefaultImageLabel,
			Filename:   DefaultFilename,
			ImageLabel: DefaultImageLabel,
		},
		Collector: CollectorConfig{
			Addr:     DefaultAddr,
			SaveDir:  DefaultSaveDir,
			Instance: DefaultInstance,
			Publish:  false,
		},
	}
}

// applyEnv overrides c with values from the environment, a .env file in the
// working directory is loaded first if present.
func applyEnv(c Config) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env file: %w", err)
	}
	if v := os.Getenv(EnvURL); v != "" {
		c.Upload.URL = v
	}
	if v := os.Getenv(EnvFile); v != "" {
		c.Upload.File = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Collector.Addr = v
	}
	if v := os.Getenv(EnvSaveDir); v != "" {
		c.Collector.SaveDir = v
	}
	return c, nil
}

func readConfig(r io.Reader) (Config, error) {
	cfg := new(Config)
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config file: %w", err)
	}
	return *cfg, nil
}

func writeConfig(w io.Writer, c Config) error {
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("encoding config file: %w", err)
	}
	return nil
}
