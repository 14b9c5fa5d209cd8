package engine

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/vidlib/transcript-engine/internal/backoff"
)

// Duration is a time.Duration that unmarshals from YAML strings like "5m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return eris.Wrap(err, "engine: duration must be a string like \"30s\"")
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return eris.Wrapf(err, "engine: parse duration %q", s)
	}
	*d = Duration(v)
	return nil
}

// Std converts back to a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// PolicyFile is the operator-tunable strategy policy, loaded from YAML. It
// controls strategy order, execution mode, and backoff windows without a
// rebuild.
type PolicyFile struct {
	Mode               string        `yaml:"mode"`
	StrategyOrder      []string      `yaml:"strategy_order"`
	PerStrategyTimeout Duration      `yaml:"per_strategy_timeout"`
	Backoff            BackoffPolicy `yaml:"backoff"`
}

// BackoffPolicy mirrors the failure-cache windows. Zero values keep the
// built-in defaults.
type BackoffPolicy struct {
	AntiBotBase    Duration `yaml:"anti_bot_base"`
	AntiBotCap     Duration `yaml:"anti_bot_cap"`
	RateLimitBase  Duration `yaml:"rate_limit_base"`
	RateLimitCap   Duration `yaml:"rate_limit_cap"`
	NotFoundWindow Duration `yaml:"not_found_window"`
	NetworkWindow  Duration `yaml:"network_window"`
	ParseWindow    Duration `yaml:"parse_window"`
}

// DefaultPolicyFile returns the built-in policy: sequential mode with the
// cheapest-first strategy order.
func DefaultPolicyFile() PolicyFile {
	return PolicyFile{
		Mode:               string(ModeSequential),
		StrategyOrder:      []string{"pagescrape", "timedtext", "innertube", "autocaption", "ytdlp"},
		PerStrategyTimeout: Duration(30 * time.Second),
	}
}

// LoadPolicyFile reads policy from a YAML file. The file has a top-level
// "policy" key; missing fields keep their defaults.
func LoadPolicyFile(path string) (PolicyFile, error) {
	pf := DefaultPolicyFile()

	data, err := os.ReadFile(path)
	if err != nil {
		return pf, eris.Wrapf(err, "engine: read policy %s", path)
	}

	var wrapper struct {
		Policy PolicyFile `yaml:"policy"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return pf, eris.Wrap(err, "engine: parse policy")
	}

	loaded := wrapper.Policy
	if loaded.Mode != "" {
		pf.Mode = loaded.Mode
	}
	if len(loaded.StrategyOrder) > 0 {
		pf.StrategyOrder = loaded.StrategyOrder
	}
	if loaded.PerStrategyTimeout > 0 {
		pf.PerStrategyTimeout = loaded.PerStrategyTimeout
	}
	pf.Backoff = loaded.Backoff

	if pf.Mode != string(ModeSequential) && pf.Mode != string(ModeRace) {
		return pf, eris.Errorf("engine: policy mode %q is not sequential or race", pf.Mode)
	}
	return pf, nil
}

// BackoffConfig converts the policy's backoff overrides into a cache config,
// keeping defaults for any zero field.
func (p PolicyFile) BackoffConfig() backoff.PolicyConfig {
	cfg := backoff.DefaultPolicyConfig()
	if p.Backoff.AntiBotBase > 0 {
		cfg.AntiBotBase = p.Backoff.AntiBotBase.Std()
	}
	if p.Backoff.AntiBotCap > 0 {
		cfg.AntiBotCap = p.Backoff.AntiBotCap.Std()
	}
	if p.Backoff.RateLimitBase > 0 {
		cfg.RateLimitBase = p.Backoff.RateLimitBase.Std()
	}
	if p.Backoff.RateLimitCap > 0 {
		cfg.RateLimitCap = p.Backoff.RateLimitCap.Std()
	}
	if p.Backoff.NotFoundWindow > 0 {
		cfg.NotFoundWindow = p.Backoff.NotFoundWindow.Std()
	}
	if p.Backoff.NetworkWindow > 0 {
		cfg.NetworkWindow = p.Backoff.NetworkWindow.Std()
	}
	if p.Backoff.ParseWindow > 0 {
		cfg.ParseWindow = p.Backoff.ParseWindow.Std()
	}
	return cfg
}
