package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	DefaultWindowDays          = 30
	DefaultPageSize            = 1000
	DefaultOverdueConcurrency  = 8
	DefaultRecentActivityLimit = 10
)

// AgingBucket labels an overdue range in days. A nil MaxDays is open ended.
type AgingBucket struct {
	Label   string `mapstructure:"label"`
	MinDays int    `mapstructure:"minDays"`
	MaxDays *int   `mapstructure:"maxDays"`
}

// ReportConfig tunes the read aggregations.
type ReportConfig struct {
	WindowDays          int           `mapstructure:"windowDays"`
	PageSize            int           `mapstructure:"pageSize"`
	OverdueConcurrency  int           `mapstructure:"overdueConcurrency"`
	RecentActivityLimit int           `mapstructure:"recentActivityLimit"`
	AgingBuckets        []AgingBucket `mapstructure:"agingBuckets"`
}

func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		WindowDays:          DefaultWindowDays,
		PageSize:            DefaultPageSize,
		OverdueConcurrency:  DefaultOverdueConcurrency,
		RecentActivityLimit: DefaultRecentActivityLimit,
		AgingBuckets: []AgingBucket{
			{Label: "0-30", MinDays: 0, MaxDays: intPtr(30)},
			{Label: "31-60", MinDays: 31, MaxDays: intPtr(60)},
			{Label: "61-90", MinDays: 61, MaxDays: intPtr(90)},
			{Label: "90+", MinDays: 91, MaxDays: nil},
		},
	}
}

func intPtr(v int) *int { return &v }

// BucketFor returns the label of the first bucket containing days, or "" when none does.
func (c ReportConfig) BucketFor(days int) string {
	for _, bucket := range c.AgingBuckets {
		if days < bucket.MinDays {
			continue
		}
		if bucket.MaxDays != nil && days > *bucket.MaxDays {
			continue
		}
		return bucket.Label
	}
	return ""
}

func (c ReportConfig) withDefaults() ReportConfig {
	defaults := DefaultReportConfig()
	if c.WindowDays <= 0 {
		c.WindowDays = defaults.WindowDays
	}
	if c.PageSize <= 0 {
		c.PageSize = defaults.PageSize
	}
	if c.OverdueConcurrency <= 0 {
		c.OverdueConcurrency = defaults.OverdueConcurrency
	}
	if c.RecentActivityLimit <= 0 {
		c.RecentActivityLimit = defaults.RecentActivityLimit
	}
	if len(c.AgingBuckets) == 0 {
		c.AgingBuckets = defaults.AgingBuckets
	}
	return c
}

type ReportConfigHolder struct {
	current atomic.Value // holds ReportConfig
}

// NewReportConfigHolder reads reports.yml when present and watches it for changes.
func NewReportConfigHolder(log *zap.Logger) (*ReportConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("reports")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/billingpulse")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BILLINGPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := LoadReportConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticReportConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := LoadReportConfig(v)
		if err != nil {
			log.Warn("report config reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("report config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// NewStaticReportConfigHolder wraps a fixed configuration.
func NewStaticReportConfigHolder(cfg ReportConfig) *ReportConfigHolder {
	holder := &ReportConfigHolder{}
	holder.current.Store(cfg.withDefaults())
	return holder
}

// LoadReportConfig decodes the "reports" section of v, filling unset fields with defaults.
func LoadReportConfig(v *viper.Viper) (ReportConfig, error) {
	var cfg ReportConfig
	if v.IsSet("reports") {
		if err := v.UnmarshalKey("reports", &cfg); err != nil {
			return ReportConfig{}, fmt.Errorf("decode reports config: %w", err)
		}
	}
	cfg = cfg.withDefaults()
	if err := validateReportConfig(cfg); err != nil {
		return ReportConfig{}, err
	}
	return cfg, nil
}

func (h *ReportConfigHolder) Get() ReportConfig {
	if h == nil {
		return DefaultReportConfig()
	}
	cfg, ok := h.current.Load().(ReportConfig)
	if !ok {
		return DefaultReportConfig()
	}
	return cfg
}

func validateReportConfig(cfg ReportConfig) error {
	for i, bucket := range cfg.AgingBuckets {
		if strings.TrimSpace(bucket.Label) == "" {
			return fmt.Errorf("reports.agingBuckets[%d]: label is required", i)
		}
		if bucket.MinDays < 0 {
			return fmt.Errorf("reports.agingBuckets[%d]: minDays cannot be negative", i)
		}
		if bucket.MaxDays != nil && *bucket.MaxDays < bucket.MinDays {
			return fmt.Errorf("reports.agingBuckets[%d]: maxDays below minDays", i)
		}
	}
	if cfg.PageSize > 10000 {
		return errors.New("reports.pageSize cannot exceed 10000")
	}
	return nil
}
