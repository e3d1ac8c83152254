package config

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	ChildrenDedupeByID        = "id"
	ChildrenDedupeByIDAndName = "id_and_name"
)

// RequestPolicy tunes request consolidation without a redeploy.
type RequestPolicy struct {
	// UnitsEnabled turns on per-item unit selection ("packs").
	UnitsEnabled      bool   `mapstructure:"unitsEnabled"`
	ChildrenDedupeKey string `mapstructure:"childrenDedupeKey"`
}

func DefaultRequestPolicy() RequestPolicy {
	return RequestPolicy{
		UnitsEnabled:      true,
		ChildrenDedupeKey: ChildrenDedupeByID,
	}
}

type RequestPolicyHolder struct {
	current atomic.Value // holds RequestPolicy
}

// NewRequestPolicyHolder reads requests.yml and keeps it in sync with the file on disk.
func NewRequestPolicyHolder(log *zap.Logger) (*RequestPolicyHolder, error) {
	v := viper.New()
	v.SetConfigName("requests")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/partnerdesk")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PARTNERDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return loadRequestPolicyHolder(v, log, true)
}

// NewStaticRequestPolicyHolder returns a holder that never reloads.
func NewStaticRequestPolicyHolder(policy RequestPolicy) *RequestPolicyHolder {
	holder := &RequestPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func loadRequestPolicyHolder(v *viper.Viper, log *zap.Logger, watch bool) (*RequestPolicyHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.requests")

	defaults := DefaultRequestPolicy()
	v.SetDefault("requests.unitsEnabled", defaults.UnitsEnabled)
	v.SetDefault("requests.childrenDedupeKey", defaults.ChildrenDedupeKey)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	cfg, err := decodeRequestPolicy(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticRequestPolicyHolder(cfg)

	if watch && fileLoaded {
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := decodeRequestPolicy(v)
			if err != nil {
				log.Warn("request policy reload ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("request policy reloaded", zap.String("file", e.Name))
		})
		v.WatchConfig()
	}

	return holder, nil
}

func decodeRequestPolicy(v *viper.Viper) (RequestPolicy, error) {
	var cfg RequestPolicy
	if err := v.UnmarshalKey("requests", &cfg); err != nil {
		return RequestPolicy{}, err
	}
	cfg.ChildrenDedupeKey = strings.ToLower(strings.TrimSpace(cfg.ChildrenDedupeKey))
	if err := validateRequestPolicy(cfg); err != nil {
		return RequestPolicy{}, err
	}
	return cfg, nil
}

// Get returns the current policy, or the defaults for a nil holder.
func (h *RequestPolicyHolder) Get() RequestPolicy {
	if h == nil {
		return DefaultRequestPolicy()
	}
	policy, ok := h.current.Load().(RequestPolicy)
	if !ok {
		return DefaultRequestPolicy()
	}
	return policy
}

func validateRequestPolicy(cfg RequestPolicy) error {
	switch cfg.ChildrenDedupeKey {
	case ChildrenDedupeByID, ChildrenDedupeByIDAndName:
		return nil
	default:
		return fmt.Errorf("requests.childrenDedupeKey %q is not supported", cfg.ChildrenDedupeKey)
	}
}
