package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// ChecksumFileName is the manifest written beside the config file.
const ChecksumFileName = ".checksums"

// ChecksumManifest maps config file basenames to their BLAKE3 hashes.
type ChecksumManifest struct {
	Version     int               `yaml:"version"`
	GeneratedAt string            `yaml:"generated_at"`
	Hashes      map[string]string `yaml:"hashes"`
}

// ComputeBlake3Hash computes the BLAKE3 hash of a file.
func ComputeBlake3Hash(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// Lock hashes configPath and writes the manifest beside it. Returns the
// manifest path.
func Lock(configPath string) (string, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	hash, err := ComputeBlake3Hash(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", filepath.Base(absPath), err)
	}

	manifest := ChecksumManifest{
		Version:     1,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Hashes:      map[string]string{filepath.Base(absPath): hash},
	}
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return "", fmt.Errorf("failed to marshal checksums: %w", err)
	}

	checksumPath := filepath.Join(filepath.Dir(absPath), ChecksumFileName)
	// Restrictive permissions: the manifest pins what the service will accept.
	if err := os.WriteFile(checksumPath, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write checksums: %w", err)
	}
	return checksumPath, nil
}

// LoadChecksums reads the manifest from dir. A missing manifest returns
// (nil, nil).
func LoadChecksums(dir string) (*ChecksumManifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ChecksumFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checksums: %w", err)
	}

	var manifest ChecksumManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: failed to parse checksums: %v", ErrInvalid, err)
	}
	if manifest.Version != 1 {
		return nil, fmt.Errorf("%w: unsupported checksums version: %d", ErrInvalid, manifest.Version)
	}
	return &manifest, nil
}

// VerifyConfigHash checks configPath against the manifest in its directory.
// Without a manifest there is nothing to verify.
func VerifyConfigHash(configPath string) error {
	dir, name := filepath.Dir(configPath), filepath.Base(configPath)

	manifest, err := LoadChecksums(dir)
	if err != nil {
		return err
	}
	if manifest == nil {
		return nil
	}

	expected, ok := manifest.Hashes[name]
	if !ok {
		return fmt.Errorf("%w: config file %s has no hash in %s\n"+
			"Run: inlet config lock --config %s", ErrInvalid, name, ChecksumFileName, configPath)
	}

	actual, err := ComputeBlake3Hash(configPath)
	if err != nil {
		return fmt.Errorf("failed to compute hash: %w", err)
	}
	if actual != expected {
		return fmt.Errorf("%w: hash mismatch for %s: expected %s, got %s\n"+
			"If you edited this file intentionally, run: inlet config lock --config %s",
			ErrInvalid, name, expected, actual, configPath)
	}
	return nil
}
