// Package config loads the JSON tuning file shared by the drivers, the
// converter and the planner. Every field is optional; omitted fields fall
// back to per-sensor defaults through the Get* accessors.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/navcore/internal/convert"
	"github.com/banshee-data/navcore/internal/lidar"
)

// TuningConfig represents the root configuration for tuning parameters.
type TuningConfig struct {
	// Scan assembly params
	MeasureFrequency *float64 `json:"measure_frequency,omitempty"`
	FullCircleFactor *float64 `json:"full_circle_factor,omitempty"`
	OverflowFactor   *float64 `json:"overflow_factor,omitempty"`
	MinDistanceMM    *float64 `json:"min_distance_mm,omitempty"`
	MaxDistanceMM    *float64 `json:"max_distance_mm,omitempty"`
	MinIntensity     *int     `json:"min_intensity,omitempty"`
	InvalidAngleMin  *float64 `json:"invalid_angle_min,omitempty"`
	InvalidAngleMax  *float64 `json:"invalid_angle_max,omitempty"`
	ScanPolicy       *string  `json:"scan_policy,omitempty"` // "direct" or "bucket"

	// Driver params
	ReadTimeout            *string  `json:"read_timeout,omitempty"` // duration string like "100ms"
	MaxConsecutiveTimeouts *int     `json:"max_consecutive_timeouts,omitempty"`
	PacketSpanFactor       *float64 `json:"packet_span_factor,omitempty"`

	// Converter params
	LidarOffsetXMM   *float64 `json:"lidar_offset_x_mm,omitempty"`
	LidarOffsetYMM   *float64 `json:"lidar_offset_y_mm,omitempty"`
	TableMarginMM    *float64 `json:"table_margin_mm,omitempty"`
	PoseHistoryIndex *int     `json:"pose_history_index,omitempty"`
	ConvertTimeout   *string  `json:"convert_timeout,omitempty"` // duration string like "500ms"

	// Planner params
	ObstacleMarginMM *float64 `json:"obstacle_margin_mm,omitempty"`
	CircleBoxPoints  *int     `json:"circle_box_points,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted
// from the JSON retain their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.FullCircleFactor != nil && *c.FullCircleFactor <= 0 {
		return fmt.Errorf("full_circle_factor must be positive, got %f", *c.FullCircleFactor)
	}

	if c.OverflowFactor != nil && *c.OverflowFactor <= 0 {
		return fmt.Errorf("overflow_factor must be positive, got %f", *c.OverflowFactor)
	}

	if c.ScanPolicy != nil {
		if *c.ScanPolicy != "direct" && *c.ScanPolicy != "bucket" {
			return fmt.Errorf("scan_policy must be \"direct\" or \"bucket\", got %q", *c.ScanPolicy)
		}
	}

	if c.ReadTimeout != nil && *c.ReadTimeout != "" {
		if _, err := time.ParseDuration(*c.ReadTimeout); err != nil {
			return fmt.Errorf("invalid read_timeout '%s': %w", *c.ReadTimeout, err)
		}
	}

	if c.ConvertTimeout != nil && *c.ConvertTimeout != "" {
		if _, err := time.ParseDuration(*c.ConvertTimeout); err != nil {
			return fmt.Errorf("invalid convert_timeout '%s': %w", *c.ConvertTimeout, err)
		}
	}

	if c.PoseHistoryIndex != nil && *c.PoseHistoryIndex < 0 {
		return fmt.Errorf("pose_history_index must be non-negative, got %d", *c.PoseHistoryIndex)
	}

	if c.MinIntensity != nil && (*c.MinIntensity < 0 || *c.MinIntensity > 255) {
		return fmt.Errorf("min_intensity must be between 0 and 255, got %d", *c.MinIntensity)
	}

	return nil
}

// GetScanPolicy returns the configured scan reduction policy.
func (c *TuningConfig) GetScanPolicy() lidar.ScanPolicy {
	if c.ScanPolicy != nil && *c.ScanPolicy == "bucket" {
		return lidar.PolicyBucketAverage
	}
	return lidar.PolicyDirectFilter
}

// GetReadTimeout parses and returns the ReadTimeout as a time.Duration.
func (c *TuningConfig) GetReadTimeout() time.Duration {
	if c.ReadTimeout == nil || *c.ReadTimeout == "" {
		return 100 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.ReadTimeout)
	if err != nil {
		return 100 * time.Millisecond // default on parse error
	}
	return d
}

// GetConvertTimeout parses and returns the ConvertTimeout as a time.Duration.
func (c *TuningConfig) GetConvertTimeout() time.Duration {
	if c.ConvertTimeout == nil || *c.ConvertTimeout == "" {
		return 500 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.ConvertTimeout)
	if err != nil {
		return 500 * time.Millisecond // default on parse error
	}
	return d
}

// GetPoseHistoryIndex returns the pose_history_index value or the default.
func (c *TuningConfig) GetPoseHistoryIndex() int {
	if c.PoseHistoryIndex == nil {
		return 0 // default
	}
	return *c.PoseHistoryIndex
}

// GetTableMarginMM returns the table_margin_mm value or the default.
func (c *TuningConfig) GetTableMarginMM() float64 {
	if c.TableMarginMM == nil {
		return 20 // default
	}
	return *c.TableMarginMM
}

// GetObstacleMarginMM returns the obstacle_margin_mm value or the default.
func (c *TuningConfig) GetObstacleMarginMM() float64 {
	if c.ObstacleMarginMM == nil {
		return 150 // default, roughly half a robot width
	}
	return *c.ObstacleMarginMM
}

// GetCircleBoxPoints returns the circle_box_points value or the default.
func (c *TuningConfig) GetCircleBoxPoints() int {
	if c.CircleBoxPoints == nil || *c.CircleBoxPoints < 3 {
		return 6 // default
	}
	return *c.CircleBoxPoints
}

// AssemblerConfig builds the assembler tuning, starting from base (the
// per-model defaults) and overriding whatever the JSON sets.
func (c *TuningConfig) AssemblerConfig(base lidar.AssemblerConfig) lidar.AssemblerConfig {
	if c.MeasureFrequency != nil {
		base.MeasureFrequency = *c.MeasureFrequency
	}
	if c.FullCircleFactor != nil {
		base.FullCircleFactor = *c.FullCircleFactor
	}
	if c.OverflowFactor != nil {
		base.OverflowFactor = *c.OverflowFactor
	}
	if c.MinDistanceMM != nil {
		base.MinDistance = *c.MinDistanceMM
	}
	if c.MaxDistanceMM != nil {
		base.MaxDistance = *c.MaxDistanceMM
	}
	if c.MinIntensity != nil {
		base.MinIntensity = uint8(*c.MinIntensity)
	}
	if c.InvalidAngleMin != nil {
		base.InvalidAngleMin = *c.InvalidAngleMin
	}
	if c.InvalidAngleMax != nil {
		base.InvalidAngleMax = *c.InvalidAngleMax
	}
	if c.ScanPolicy != nil {
		base.Policy = c.GetScanPolicy()
	}
	return base
}

// DriverConfig builds the driver tuning on top of the per-model defaults.
func (c *TuningConfig) DriverConfig(base lidar.DriverConfig) lidar.DriverConfig {
	base.ReadTimeout = c.GetReadTimeout()
	if c.MaxConsecutiveTimeouts != nil {
		base.MaxConsecutiveTimeouts = *c.MaxConsecutiveTimeouts
	}
	if c.PacketSpanFactor != nil {
		base.PacketSpanFactor = *c.PacketSpanFactor
	}
	if c.MeasureFrequency != nil {
		base.MeasureFrequency = *c.MeasureFrequency
	}
	return base
}

// ConverterConfig builds the converter tuning.
func (c *TuningConfig) ConverterConfig() convert.Config {
	cfg := convert.DefaultConfig()
	if c.LidarOffsetXMM != nil {
		cfg.OffsetX = *c.LidarOffsetXMM
	}
	if c.LidarOffsetYMM != nil {
		cfg.OffsetY = *c.LidarOffsetYMM
	}
	cfg.TableMargin = c.GetTableMarginMM()
	cfg.PoseHistoryIndex = c.GetPoseHistoryIndex()
	cfg.WaitTimeout = c.GetConvertTimeout()
	return cfg
}
