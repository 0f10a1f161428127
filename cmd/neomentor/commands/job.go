package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Job describes one local run. It can be given as flags or as a YAML or
// JSON file:
//
//	topic: Photosynthesis
//	time: 15s
//	image: ./face.png
//	audio: ./voice.wav
type Job struct {
	Topic   string `yaml:"topic" json:"topic"`
	Time    string `yaml:"time" json:"time"`
	Image   string `yaml:"image" json:"image"`
	Audio   string `yaml:"audio" json:"audio"`
	WorkDir string `yaml:"workdir" json:"workdir"`
}

// loadJob reads a job file. Relative media paths resolve against the
// file's directory.
func loadJob(path string) (Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Job{}, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	var job Job
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &job); err != nil {
			return Job{}, fmt.Errorf("failed to parse JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &job); err != nil {
			return Job{}, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &job); err != nil {
			if err := json.Unmarshal(data, &job); err != nil {
				return Job{}, fmt.Errorf("failed to parse file (tried YAML and JSON): %w", err)
			}
		}
	}

	base := filepath.Dir(path)
	job.Image = resolve(base, job.Image)
	job.Audio = resolve(base, job.Audio)
	job.WorkDir = resolve(base, job.WorkDir)
	return job, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// merge overlays the non-empty fields of o onto j.
func (j Job) merge(o Job) Job {
	if o.Topic != "" {
		j.Topic = o.Topic
	}
	if o.Time != "" {
		j.Time = o.Time
	}
	if o.Image != "" {
		j.Image = o.Image
	}
	if o.Audio != "" {
		j.Audio = o.Audio
	}
	if o.WorkDir != "" {
		j.WorkDir = o.WorkDir
	}
	return j
}

func (j Job) validate() error {
	if strings.TrimSpace(j.Topic) == "" {
		return errors.New("a topic is required, use --topic or the job file")
	}
	if j.Audio == "" {
		return errors.New("a reference voice recording is required, use --audio")
	}
	for _, p := range []string{j.Audio, j.Image} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("cannot read %s: %w", p, err)
		}
	}
	return nil
}
