package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Embedding EmbeddingConfig
	Web       WebConfig
	Pipeline  PipelineConfig
}

type EmbeddingConfig struct {
	URL         string // face-analysis server, defaults to http://localhost:8000
	ProposerURL string // proposal server, defaults to the face-analysis server
}

type WebConfig struct {
	Port int
	Host string
}

// PipelineConfig carries the tuning knobs for the detection, dedupe,
// clustering and export stages. Defaults are embedded at build time.
type PipelineConfig struct {
	Detection DetectionConfig `yaml:"detection"`
	Dedupe    DedupeConfig    `yaml:"dedupe"`
	Cluster   ClusterConfig   `yaml:"cluster"`
	Export    ExportConfig    `yaml:"export"`
}

type DetectionConfig struct {
	Rotations      []int    `yaml:"rotations"`       // detection rotation attempts in degrees
	ScoreThreshold float64  `yaml:"score_threshold"` // minimum detector confidence
	MinFacePx      float64  `yaml:"min_face_px"`     // minimum bounding box side in pixels
	Preprocess     []string `yaml:"preprocess"`      // transform chain tried when detection is empty
}

type DedupeConfig struct {
	IoUThreshold    float64 `yaml:"iou_threshold"`
	CosineThreshold float64 `yaml:"cosine_threshold"`
}

type ClusterConfig struct {
	Method          string  `yaml:"method"` // "linkage" or "dbscan"
	LinkageCutoff   float64 `yaml:"linkage_cutoff"`
	MinSamples      int     `yaml:"min_samples"`
	MinClusterSize  int     `yaml:"min_cluster_size"`
	DBSCANEps       float64 `yaml:"dbscan_eps"`
	DBSCANMinPoints int     `yaml:"dbscan_min_points"`
	BruteForceLimit int     `yaml:"brute_force_limit"`
	MergeThreshold  float64 `yaml:"merge_threshold"` // 0 disables the merge stage
}

type ExportConfig struct {
	ThumbSize int `yaml:"thumb_size"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func Load() *Config {
	var pipeline PipelineConfig
	if err := yaml.Unmarshal(defaultsYAML, &pipeline); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Embedding: EmbeddingConfig{
			URL:         os.Getenv("EMBEDDING_URL"),
			ProposerURL: os.Getenv("PROPOSER_URL"),
		},
		Web: WebConfig{
			Port: envInt("WEB_PORT", 8080),
			Host: getenvDefault("WEB_HOST", "0.0.0.0"),
		},
		Pipeline: pipeline,
	}
}

func getenvDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
