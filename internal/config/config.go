package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Container ContainerConfig `mapstructure:"container"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Backup    BackupConfig    `mapstructure:"backup"`
	Restore   RestoreConfig   `mapstructure:"restore"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Setup     SetupConfig     `mapstructure:"setup"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

type ContainerConfig struct {
	Name               string `mapstructure:"name"`
	StopTimeoutSeconds int    `mapstructure:"stop_timeout_seconds"`
}

type DatabaseConfig struct {
	// Superuser runs dumps and administrative statements (drop/create).
	Superuser string `mapstructure:"superuser"`
	// User owns the recreated database.
	User string `mapstructure:"user"`
	Name string `mapstructure:"name"`
}

type BackupConfig struct {
	Dir           string         `mapstructure:"dir"`
	RetentionDays int            `mapstructure:"retention_days"`
	UploadTargets []UploadTarget `mapstructure:"upload_targets"`
}

type RestoreConfig struct {
	// TempDir is the directory inside the container that archives are
	// copied into before being applied.
	TempDir string `mapstructure:"temp_dir"`
	// ServiceWaitSeconds is how long to wait after the container restart
	// before the single status probe.
	ServiceWaitSeconds int `mapstructure:"service_wait_seconds"`
}

type AgentConfig struct {
	StateFile        string `mapstructure:"state_file"`
	BackupSchedule   string `mapstructure:"backup_schedule"`
	CleanupSchedule  string `mapstructure:"cleanup_schedule"`
	MinIntervalHours int    `mapstructure:"min_interval_hours"`
	// DownloadDir receives backup files uploaded through the Telegram bot.
	DownloadDir string `mapstructure:"download_dir"`
}

type SetupConfig struct {
	Image                string   `mapstructure:"image"`
	Ports                []string `mapstructure:"ports"`
	DataVolume           string   `mapstructure:"data_volume"`
	ReadyRetries         int      `mapstructure:"ready_retries"`
	ReadyIntervalSeconds int      `mapstructure:"ready_interval_seconds"`
}

type UploadTarget struct {
	Type    string `mapstructure:"type"`
	Enabled bool   `mapstructure:"enabled"`

	// Google Drive
	CredentialsFile string `mapstructure:"credentials_file"`
	FolderID        string `mapstructure:"folder_id"`

	// AWS S3
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`

	// Telegram
	BotToken   string `mapstructure:"bot_token"`
	ChatID     string `mapstructure:"chat_id"`
	SendFile   bool   `mapstructure:"send_file"`
	NotifyOnly bool   `mapstructure:"notify_only"`
}

// Load reads the YAML config at path, applies IBSGUARD_* environment
// overrides on top, and validates the result. A missing file is not an
// error: every option has a documented default, so env-only operation works.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("IBSGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Defaults mirror the stock IBSng deployment the tool was written for.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "ibsguard")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("container.name", "ibsng")
	v.SetDefault("container.stop_timeout_seconds", 30)

	v.SetDefault("database.superuser", "postgres")
	v.SetDefault("database.user", "ibs")
	v.SetDefault("database.name", "IBSng")

	v.SetDefault("backup.dir", "/tmp/ibsng_backup_files")
	v.SetDefault("backup.retention_days", 3)

	v.SetDefault("restore.temp_dir", "/tmp")
	v.SetDefault("restore.service_wait_seconds", 10)

	v.SetDefault("agent.state_file", "/var/lib/ibsguard/state.json")
	v.SetDefault("agent.backup_schedule", "0 0 * * * *")
	v.SetDefault("agent.cleanup_schedule", "0 0 3 * * *")
	v.SetDefault("agent.min_interval_hours", 2)
	v.SetDefault("agent.download_dir", "/tmp/ibsng_restore")

	v.SetDefault("setup.image", "ibsng:latest")
	v.SetDefault("setup.data_volume", "ibsng-pgdata")
	v.SetDefault("setup.ready_retries", 30)
	v.SetDefault("setup.ready_interval_seconds", 2)
}

func (c *Config) Validate() error {
	if c.Container.Name == "" {
		return fmt.Errorf("container.name is required")
	}
	if c.Database.Superuser == "" || c.Database.User == "" || c.Database.Name == "" {
		return fmt.Errorf("database.superuser, database.user and database.name are required")
	}
	if c.Backup.Dir == "" {
		return fmt.Errorf("backup.dir is required")
	}
	if c.Backup.RetentionDays < 0 {
		return fmt.Errorf("backup.retention_days must not be negative")
	}
	if c.Restore.ServiceWaitSeconds < 0 {
		return fmt.Errorf("restore.service_wait_seconds must not be negative")
	}
	if c.Agent.MinIntervalHours <= 0 {
		return fmt.Errorf("agent.min_interval_hours must be positive")
	}

	for i, target := range c.Backup.UploadTargets {
		if !target.Enabled {
			continue
		}
		switch target.Type {
		case "s3":
			if target.Bucket == "" || target.Region == "" {
				return fmt.Errorf("upload_targets[%d]: s3 requires bucket and region", i)
			}
		case "gdrive":
			if target.CredentialsFile == "" || target.FolderID == "" {
				return fmt.Errorf("upload_targets[%d]: gdrive requires credentials_file and folder_id", i)
			}
		case "telegram":
			if target.BotToken == "" || target.ChatID == "" {
				return fmt.Errorf("upload_targets[%d]: telegram requires bot_token and chat_id", i)
			}
		case "":
			return fmt.Errorf("upload_targets[%d]: type is required", i)
		default:
			return fmt.Errorf("upload_targets[%d]: unknown type %q", i, target.Type)
		}
	}

	return nil
}

func (c *Config) GetEnabledUploadTargets() []UploadTarget {
	var enabled []UploadTarget
	for _, target := range c.Backup.UploadTargets {
		if target.Enabled {
			enabled = append(enabled, target)
		}
	}
	return enabled
}
