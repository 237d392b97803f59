package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"
)

// StepName identifies a cycle step for caching purposes.
type StepName string

const (
	StepPlan   StepName = "plan"
	StepTrends StepName = "trends"
	StepLLM    StepName = "llm"
	StepReport StepName = "report"
)

// Cache writes timestamped debug snapshots of cycle steps under a root
// directory. A nil *Cache is valid and discards everything.
type Cache struct {
	dir string
	seq atomic.Uint64
}

// NewCache creates a cache rooted at dir
func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

// Dir returns the cache root
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

// stepDir returns the cache directory for a given step.
func (c *Cache) stepDir(step StepName) string {
	return filepath.Join(c.dir, string(step))
}

// generateFilename creates a sortable timestamped filename. The sequence
// suffix keeps names unique when channels write concurrently.
func (c *Cache) generateFilename(ext string) string {
	return fmt.Sprintf("%s-%04d%s", time.Now().Format("2006-01-02T15-04-05.000000"), c.seq.Add(1)%10000, ext)
}

// SaveStepOutput saves JSON-serializable data to the step's cache directory.
// Returns the path to the saved file, or "" for a nil cache.
func SaveStepOutput[T any](c *Cache, step StepName, data T) (string, error) {
	if c == nil {
		return "", nil
	}

	dir := c.stepDir(step)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create step cache dir: %w", err)
	}

	path := filepath.Join(dir, c.generateFilename(".json"))

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal step output: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return "", fmt.Errorf("failed to write step output: %w", err)
	}

	return path, nil
}

// SaveTextOutput saves text content (e.g. a rendered report) to the step's cache directory.
func (c *Cache) SaveTextOutput(step StepName, content string, ext string) (string, error) {
	if c == nil {
		return "", nil
	}

	dir := c.stepDir(step)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create step cache dir: %w", err)
	}

	path := filepath.Join(dir, c.generateFilename(ext))

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write step output: %w", err)
	}

	return path, nil
}

// LoadLatestStepOutput loads the most recent JSON output of a step.
// Returns the data, the filepath it was loaded from, and any error.
func LoadLatestStepOutput[T any](c *Cache, step StepName) (T, string, error) {
	var zero T

	latestPath, err := c.LatestStepFile(step, ".json")
	if err != nil {
		return zero, "", err
	}

	data, err := LoadStepOutput[T](latestPath)
	if err != nil {
		return zero, "", err
	}

	return data, latestPath, nil
}

// LoadStepOutput loads JSON data from a specific file path.
func LoadStepOutput[T any](path string) (T, error) {
	var data T

	jsonData, err := os.ReadFile(path)
	if err != nil {
		return data, fmt.Errorf("failed to read step output: %w", err)
	}

	if err := json.Unmarshal(jsonData, &data); err != nil {
		return data, fmt.Errorf("failed to unmarshal step output: %w", err)
	}

	return data, nil
}

// LatestStepFile returns the most recent file with extension ext in a step's directory.
func (c *Cache) LatestStepFile(step StepName, ext string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("no cached output for step %s", step)
	}

	dir := c.stepDir(step)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no cached output for step %s", step)
		}
		return "", err
	}

	// Timestamped names sort chronologically
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ext {
			files = append(files, entry.Name())
		}
	}

	if len(files) == 0 {
		return "", fmt.Errorf("no cached output for step %s", step)
	}
	sort.Strings(files)

	return filepath.Join(dir, files[len(files)-1]), nil
}
