package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/quantsnap/internal/contracts"
)

// Load reads a YAML file over the defaults and returns Config with raw bytes.
// Fields missing from the file keep their default values.
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, data, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, data, nil
}

// Parse decodes and validates YAML strategy data
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	// 파일에 weights가 있으면 기본 가중치와 섞지 않고 교체
	var probe struct {
		Ranking struct {
			Weights map[string]float64 `yaml:"weights"`
		} `yaml:"ranking"`
	}
	if err := yaml.Unmarshal(data, &probe); err == nil && probe.Ranking.Weights != nil {
		cfg.Ranking.Weights = nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Weights returns the effective weight vector, renormalized when configured
func (c *Config) Weights() contracts.WeightVector {
	w := make(contracts.WeightVector, len(c.Ranking.Weights))
	for k, v := range c.Ranking.Weights {
		w[k] = v
	}
	if c.Ranking.Renormalize {
		return w.Normalized()
	}
	return w
}

// Hash generates SHA256 hash from Config (canonical JSON)
// encoding/json은 map 키를 정렬하므로 해시가 재현됨
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
