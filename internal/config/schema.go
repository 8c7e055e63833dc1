package config

import "github.com/gyaneshwarpardhi/pacsim/internal/catalog"

// Config is the top-level YAML structure.
type Config struct {
	Version   string        `yaml:"version"`
	Engine    EngineConf    `yaml:"engine"`
	Generator GeneratorConf `yaml:"generator"`
	Budget    BudgetConf    `yaml:"budget"`
	Storage   StorageConf   `yaml:"storage"`
	Kafka     KafkaConf     `yaml:"kafka"`
	Reference ReferenceConf `yaml:"reference"`
}

// EngineConf sizes the generation job pool.
type EngineConf struct {
	Workers    int `yaml:"workers"`
	QueueDepth int `yaml:"queue_depth"`
	TimeoutMs  int `yaml:"timeout_ms"`
	JobHistory int `yaml:"job_history"` // finished jobs kept for polling
}

// GeneratorConf tunes event synthesis.
type GeneratorConf struct {
	Timezone     string               `yaml:"timezone"`
	MaxAttempts  int                  `yaml:"max_attempts"`
	Distribution catalog.Distribution `yaml:"distribution"` // empty = catalog weights
	Commute      CommuteConf          `yaml:"commute"`
	Fault        FaultConf            `yaml:"fault"`
}

// CommuteConf controls the arrival/departure pattern. Times are "HH:MM".
type CommuteConf struct {
	EntranceDoor           string   `yaml:"entrance_door"`
	Departments            []string `yaml:"departments"`
	MaxEmployees           int      `yaml:"max_employees"`
	Participation          float64  `yaml:"participation"`
	Arrival                string   `yaml:"arrival"`
	ArrivalJitterMinutes   int      `yaml:"arrival_jitter_minutes"`
	Departure              string   `yaml:"departure"`
	DepartureJitterMinutes int      `yaml:"departure_jitter_minutes"`
}

// FaultConf controls the recurring sensor fault.
type FaultConf struct {
	DoorMatch    string `yaml:"door_match"`
	IntervalDays int    `yaml:"interval_days"`
}

// BudgetConf sets the storage quota.
type BudgetConf struct {
	CapacityBytes int64   `yaml:"capacity_bytes"`
	MaxUsageRatio float64 `yaml:"max_usage_ratio"`
	MaxCount      int     `yaml:"max_count"`
	MinCount      int     `yaml:"min_count"`
}

// StorageConf selects the dataset store. An empty RedisURL keeps data in memory.
type StorageConf struct {
	RedisURL   string `yaml:"redis_url"`
	Key        string `yaml:"key"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// KafkaConf enables publishing when Brokers is non-empty.
type KafkaConf struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// ReferenceConf points at a reference dataset; empty uses the built-in one.
type ReferenceConf struct {
	Path string `yaml:"path"`
}
