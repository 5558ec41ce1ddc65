// Package config holds notetrack's persisted configuration: tracker
// credentials, the host endpoint, and the field mapping tables. The
// config is one of the named state blobs and is only mutated through
// the settings commands.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/notetrack/notetrack/internal/statestore"
)

// JiraConfig holds JIRA connection settings. Auth is Basic from
// username + API token.
type JiraConfig struct {
	BaseURL  string `json:"base_url,omitempty"`
	Username string `json:"username,omitempty"`
	APIToken string `json:"api_token,omitempty"`
}

// LarkConfig holds Lark/Feishu project settings. The work-hour service
// lives on a separate base URL with its own auth pair.
type LarkConfig struct {
	BaseURL      string `json:"base_url,omitempty"`
	PluginID     string `json:"plugin_id,omitempty"`
	PluginSecret string `json:"plugin_secret,omitempty"`
	UserKey      string `json:"user_key,omitempty"`
	SpaceID      string `json:"space_id,omitempty"`

	WorkHourBaseURL string `json:"workhour_base_url,omitempty"`
	ProjectKey      string `json:"project_key,omitempty"`
	Authorization   string `json:"authorization,omitempty"`
}

// HostConfig points at the note application's data API.
type HostConfig struct {
	BaseURL    string `json:"base_url,omitempty"`
	Token      string `json:"token,omitempty"`
	NotebookID string `json:"notebook_id,omitempty"` // daily-note notebook
	DatabaseID string `json:"database_id,omitempty"` // target database view
	KeyColumn  string `json:"key_column,omitempty"`  // column holding the issue key
}

// Config is the unit of durability for settings.
type Config struct {
	ActiveTracker string `json:"active_tracker,omitempty"` // "jira" or "lark"

	Jira JiraConfig `json:"jira,omitempty"`
	Lark LarkConfig `json:"lark,omitempty"`
	Host HostConfig `json:"host,omitempty"`

	// FieldMappings maps a column name to a source path or expression;
	// FieldTypes tags each mapped name as text/date/select/url.
	FieldMappings map[string]string `json:"field_mappings,omitempty"`
	FieldTypes    map[string]string `json:"field_types,omitempty"`
}

// Load reads the config blob, overlaying environment variables.
// A missing blob yields a zero config so first-run setup can proceed.
func Load(store *statestore.Store) (*Config, error) {
	var cfg Config
	if _, err := store.Load(statestore.BlobConfig, &cfg); err != nil {
		return nil, err
	}
	if cfg.FieldMappings == nil {
		cfg.FieldMappings = map[string]string{}
	}
	if cfg.FieldTypes == nil {
		cfg.FieldTypes = map[string]string{}
	}
	cfg.applyEnv()
	return &cfg, nil
}

// Save persists the config blob.
func (c *Config) Save(store *statestore.Store) error {
	return store.Save(statestore.BlobConfig, c)
}

// applyEnv overlays credentials from the environment. Env always wins
// over the blob so CI and scripts can run without persisted secrets.
func (c *Config) applyEnv() {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	overlay := func(dst *string, keys ...string) {
		for _, key := range keys {
			if s := v.GetString(key); s != "" {
				*dst = s
				return
			}
		}
	}

	overlay(&c.ActiveTracker, "NT_TRACKER")
	overlay(&c.Jira.BaseURL, "JIRA_URL")
	overlay(&c.Jira.Username, "JIRA_USERNAME")
	overlay(&c.Jira.APIToken, "JIRA_API_TOKEN")
	overlay(&c.Lark.BaseURL, "LARK_URL")
	overlay(&c.Lark.PluginID, "LARK_PLUGIN_ID")
	overlay(&c.Lark.PluginSecret, "LARK_PLUGIN_SECRET")
	overlay(&c.Lark.UserKey, "LARK_USER_KEY")
	overlay(&c.Lark.SpaceID, "LARK_SPACE_ID")
	overlay(&c.Lark.WorkHourBaseURL, "LARK_WORKHOUR_URL")
	overlay(&c.Lark.ProjectKey, "LARK_PROJECT_KEY")
	overlay(&c.Lark.Authorization, "LARK_AUTHORIZATION")
	overlay(&c.Host.BaseURL, "NT_HOST_URL")
	overlay(&c.Host.Token, "NT_HOST_TOKEN")
}

// ValidateTracker checks that the active tracker has enough credentials
// to make calls. These are the blocking, user-surfaced errors.
func (c *Config) ValidateTracker() error {
	switch c.ActiveTracker {
	case "jira":
		if c.Jira.BaseURL == "" {
			return fmt.Errorf("JIRA base URL not configured (nt config set jira.base_url or JIRA_URL)")
		}
		if c.Jira.APIToken == "" {
			return fmt.Errorf("JIRA API token not configured (nt config set jira.api_token or JIRA_API_TOKEN)")
		}
		return nil
	case "lark":
		if c.Lark.BaseURL == "" {
			return fmt.Errorf("Lark base URL not configured (nt config set lark.base_url or LARK_URL)")
		}
		if c.Lark.PluginID == "" || c.Lark.PluginSecret == "" {
			return fmt.Errorf("Lark plugin credentials not configured (lark.plugin_id / lark.plugin_secret)")
		}
		if c.Lark.UserKey == "" {
			return fmt.Errorf("Lark user key not configured (lark.user_key or LARK_USER_KEY)")
		}
		return nil
	case "":
		return fmt.Errorf("no active tracker configured (nt config set active_tracker jira|lark)")
	default:
		return fmt.Errorf("unknown tracker %q", c.ActiveTracker)
	}
}

// ValidateHost checks the host endpoint configuration.
func (c *Config) ValidateHost() error {
	if c.Host.BaseURL == "" {
		return fmt.Errorf("host API URL not configured (nt config set host.base_url or NT_HOST_URL)")
	}
	return nil
}

// Get returns a settings value by dotted key, for `nt config get`.
func (c *Config) Get(key string) (string, bool) {
	v, ok := c.fields()[key]
	if !ok {
		return "", false
	}
	return *v, true
}

// Set assigns a settings value by dotted key, for `nt config set`.
func (c *Config) Set(key, value string) error {
	v, ok := c.fields()[key]
	if !ok {
		return fmt.Errorf("unknown config key %q", key)
	}
	*v = value
	return nil
}

// Keys lists settable config keys in display order.
func (c *Config) Keys() []string {
	return []string{
		"active_tracker",
		"jira.base_url", "jira.username", "jira.api_token",
		"lark.base_url", "lark.plugin_id", "lark.plugin_secret",
		"lark.user_key", "lark.space_id",
		"lark.workhour_base_url", "lark.project_key", "lark.authorization",
		"host.base_url", "host.token", "host.notebook_id",
		"host.database_id", "host.key_column",
	}
}

func (c *Config) fields() map[string]*string {
	return map[string]*string{
		"active_tracker":         &c.ActiveTracker,
		"jira.base_url":          &c.Jira.BaseURL,
		"jira.username":          &c.Jira.Username,
		"jira.api_token":         &c.Jira.APIToken,
		"lark.base_url":          &c.Lark.BaseURL,
		"lark.plugin_id":         &c.Lark.PluginID,
		"lark.plugin_secret":     &c.Lark.PluginSecret,
		"lark.user_key":          &c.Lark.UserKey,
		"lark.space_id":          &c.Lark.SpaceID,
		"lark.workhour_base_url": &c.Lark.WorkHourBaseURL,
		"lark.project_key":       &c.Lark.ProjectKey,
		"lark.authorization":     &c.Lark.Authorization,
		"host.base_url":          &c.Host.BaseURL,
		"host.token":             &c.Host.Token,
		"host.notebook_id":       &c.Host.NotebookID,
		"host.database_id":       &c.Host.DatabaseID,
		"host.key_column":        &c.Host.KeyColumn,
	}
}
