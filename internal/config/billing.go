package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BankDetails are the default bank-transfer details printed on bills when the
// caller does not supply their own.
type BankDetails struct {
	AccountName string `mapstructure:"accountName" json:"accountName"`
	AccountNo   string `mapstructure:"accountNo" json:"accountNo"`
	BankName    string `mapstructure:"bankName" json:"bankName"`
	IFSC        string `mapstructure:"ifsc" json:"ifsc"`
	Branch      string `mapstructure:"branch" json:"branch"`
}

// BillingConfig holds billing defaults loaded from billing.yml.
type BillingConfig struct {
	DefaultSGSTPercent float64     `mapstructure:"defaultSgstPercent"`
	DefaultCGSTPercent float64     `mapstructure:"defaultCgstPercent"`
	Bank               BankDetails `mapstructure:"bank"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		DefaultSGSTPercent: 9,
		DefaultCGSTPercent: 9,
	}
}

// BillingConfigHolder exposes the current billing defaults and hot-reloads
// them when the underlying file changes.
type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/opsdesk/config")
	v.AddConfigPath("/etc/opsdesk")
	v.AddConfigPath(".")

	v.SetEnvPrefix("OPSDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultBillingConfig()
		v.SetDefault("billing.defaultSgstPercent", defaults.DefaultSGSTPercent)
		v.SetDefault("billing.defaultCgstPercent", defaults.DefaultCGSTPercent)
		v.SetDefault("billing.bank", defaults.Bank)
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Printf("[billing-config] reload failed: %v", err)
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			log.Printf("[billing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[billing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticBillingConfigHolder wraps a fixed config without file watching.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func validateBillingConfig(cfg BillingConfig) error {
	if cfg.DefaultSGSTPercent < 0 || cfg.DefaultCGSTPercent < 0 {
		return errors.New("billing tax percentages cannot be negative")
	}
	return nil
}
