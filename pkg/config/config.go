// Package config loads and validates the core's runtime configuration: the
// named options spec.md lists as consumed by the protocol engine, plus the
// host-adapter connection settings a deployment wires in around it.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete core configuration.
type Config struct {
	Ratchet  RatchetConfig  `yaml:"ratchet"`
	Backup   BackupConfig   `yaml:"backup"`
	Packet   PacketConfig   `yaml:"packet"`
	CRDT     CRDTConfig     `yaml:"crdt"`
	DeadMan  DeadManConfig  `yaml:"dead_man"`
	Decoys   DecoysConfig   `yaml:"decoys"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// RatchetConfig holds PQ double-ratchet tuning.
type RatchetConfig struct {
	MaxSkipAhead           uint64 `yaml:"max_skip_ahead"`
	SkippedKeyPurgeBelow   uint64 `yaml:"skipped_key_purge_below"`
}

// BackupConfig holds Argon2id cost parameters for password backups.
type BackupConfig struct {
	MemoryCostKiB uint32 `yaml:"memory_cost_kib"`
	TimeCost      uint32 `yaml:"time_cost"`
	Parallelism   uint8  `yaml:"parallelism"`
}

// PacketConfig holds fixed-size transport packet sizing.
type PacketConfig struct {
	PacketSize      int `yaml:"packet_size"`
	CoverTrafficLen int `yaml:"cover_traffic_len"`
}

// CRDTConfig holds group-engine op and sync guardrails.
type CRDTConfig struct {
	MaxOpPayloadBytes   int `yaml:"max_op_payload_bytes"`
	SoftOpCap           int `yaml:"soft_op_cap"`
	HardOpCap           int `yaml:"hard_op_cap"`
	MaxOpsPerPeerPerMin int `yaml:"max_ops_per_peer_per_min"`
	MaxConcurrentSyncs  int `yaml:"max_concurrent_syncs"`
	MaxOpsPerChunk      int `yaml:"max_ops_per_chunk"`
	MaxBytesPerSyncRound int `yaml:"max_bytes_per_sync_round"`
}

// DeadManConfig holds dead-man switch defaults for newly created switches.
type DeadManConfig struct {
	IntervalHours   int    `yaml:"interval_hours"`
	GracePeriods    int    `yaml:"grace_periods"`
	NotifyContactID string `yaml:"notify_contact_id"`
}

// DecoysConfig holds decoy-contact generation defaults.
type DecoysConfig struct {
	ContactCount      int `yaml:"contact_count"`
	MessagesPerContact int `yaml:"messages_per_contact"`
	MinMessageLength  int `yaml:"min_message_length"`
	MaxMessageLength  int `yaml:"max_message_length"`
}

// PostgresConfig holds the ContactTrustStore backend connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds the replay-cache/ACK-map Redis backend connection settings.
type RedisConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// LoggingConfig holds structured-log sink settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	OutputFile string `yaml:"output_file"` // empty = stdout
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// LoadConfig loads configuration from a YAML file, fills defaults, and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse file: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Ratchet.MaxSkipAhead == 0 {
		c.Ratchet.MaxSkipAhead = 256
	}
	if c.Ratchet.SkippedKeyPurgeBelow == 0 {
		c.Ratchet.SkippedKeyPurgeBelow = c.Ratchet.MaxSkipAhead
	}

	if c.Backup.MemoryCostKiB == 0 {
		c.Backup.MemoryCostKiB = 64 * 1024
	}
	if c.Backup.TimeCost == 0 {
		c.Backup.TimeCost = 4
	}
	if c.Backup.Parallelism == 0 {
		c.Backup.Parallelism = 2
	}

	if c.Packet.PacketSize == 0 {
		c.Packet.PacketSize = 8192
	}
	if c.Packet.CoverTrafficLen == 0 {
		c.Packet.CoverTrafficLen = 1024
	}

	if c.CRDT.MaxOpPayloadBytes == 0 {
		c.CRDT.MaxOpPayloadBytes = 64 * 1024
	}
	if c.CRDT.SoftOpCap == 0 {
		c.CRDT.SoftOpCap = 250_000
	}
	if c.CRDT.HardOpCap == 0 {
		c.CRDT.HardOpCap = 500_000
	}
	if c.CRDT.MaxOpsPerPeerPerMin == 0 {
		c.CRDT.MaxOpsPerPeerPerMin = 100
	}
	if c.CRDT.MaxConcurrentSyncs == 0 {
		c.CRDT.MaxConcurrentSyncs = 2
	}
	if c.CRDT.MaxOpsPerChunk == 0 {
		c.CRDT.MaxOpsPerChunk = 256
	}
	if c.CRDT.MaxBytesPerSyncRound == 0 {
		c.CRDT.MaxBytesPerSyncRound = 10 * 1024 * 1024
	}

	if c.DeadMan.IntervalHours == 0 {
		c.DeadMan.IntervalHours = 24
	}

	if c.Decoys.ContactCount == 0 {
		c.Decoys.ContactCount = 5
	}
	if c.Decoys.MessagesPerContact == 0 {
		c.Decoys.MessagesPerContact = 20
	}
	if c.Decoys.MinMessageLength == 0 {
		c.Decoys.MinMessageLength = 10
	}
	if c.Decoys.MaxMessageLength == 0 {
		c.Decoys.MaxMessageLength = 200
	}

	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.SSLMode == "" {
		c.Postgres.SSLMode = "disable"
	}

	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 5 * time.Minute
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 100
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 3
	}
}

func (c *Config) validate() error {
	if c.Ratchet.MaxSkipAhead == 0 {
		return fmt.Errorf("ratchet max_skip_ahead must be positive")
	}
	if c.Backup.MemoryCostKiB < 8*1024 {
		return fmt.Errorf("backup memory_cost_kib %d below floor %d", c.Backup.MemoryCostKiB, 8*1024)
	}
	if c.Backup.TimeCost < 1 {
		return fmt.Errorf("backup time_cost must be at least 1")
	}
	if c.Backup.Parallelism < 1 {
		return fmt.Errorf("backup parallelism must be at least 1")
	}
	if c.Packet.PacketSize != 8192 {
		return fmt.Errorf("packet_size must be 8192, got %d", c.Packet.PacketSize)
	}
	if c.CRDT.SoftOpCap >= c.CRDT.HardOpCap {
		return fmt.Errorf("crdt soft_op_cap must be below hard_op_cap")
	}
	if c.DeadMan.IntervalHours < 24 {
		return fmt.Errorf("dead_man interval_hours must be at least 24, got %d", c.DeadMan.IntervalHours)
	}
	if c.Decoys.MinMessageLength > c.Decoys.MaxMessageLength {
		return fmt.Errorf("decoys min_message_length must not exceed max_message_length")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}

	return nil
}

// GenerateDefaultConfig builds a Config populated entirely from defaults,
// suitable for writing out a starter file.
func GenerateDefaultConfig() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

// WriteConfigFile writes cfg to path as YAML.
func WriteConfigFile(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write file: %w", err)
	}
	return nil
}
