package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Rules is the externally tunable classification policy: every threshold,
// the lexical/semantic blend weight, the duplicate window, and the static
// phrase and resolution maps. Loaded once at startup and treated as
// immutable afterwards; reload-on-change is the caller's concern.
type Rules struct {
	LexicalWeight          float64       `mapstructure:"lexical_weight"`
	FraudThreshold         float64       `mapstructure:"fraud_threshold"`
	RefundThreshold        float64       `mapstructure:"refund_threshold"`
	FailedThreshold        float64       `mapstructure:"failed_threshold"`
	DuplicateTextThreshold float64       `mapstructure:"duplicate_text_threshold"`
	FloorThreshold         float64       `mapstructure:"floor_threshold"`
	DuplicateConfidence    float64       `mapstructure:"duplicate_confidence"`
	FailedStatusBump       float64       `mapstructure:"failed_status_bump"`
	ConfidenceCap          float64       `mapstructure:"confidence_cap"`
	DuplicateWindow        time.Duration `mapstructure:"duplicate_window"`

	Phrases     map[string][]string   `mapstructure:"phrases"`
	Resolutions map[string]Resolution `mapstructure:"resolutions"`
}

type Resolution struct {
	Action        string `mapstructure:"action" json:"action"`
	Justification string `mapstructure:"justification" json:"justification"`
}

// LoadRules reads the rules file if present and fills every gap with the
// built-in defaults, so a missing or partial file still yields a complete
// policy.
func LoadRules(path string) (Rules, error) {
	v := viper.New()
	setRuleDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return Rules{}, fmt.Errorf("read rules file %s: %w", path, err)
			}
		}
	}

	var r Rules
	if err := v.Unmarshal(&r); err != nil {
		return Rules{}, err
	}
	if len(r.Phrases) == 0 {
		r.Phrases = defaultPhrases()
	}
	if len(r.Resolutions) == 0 {
		r.Resolutions = defaultResolutions()
	}
	normalizeRules(&r)
	return r, nil
}

// DefaultRules returns the built-in policy, used directly in tests.
func DefaultRules() Rules {
	v := viper.New()
	setRuleDefaults(v)
	var r Rules
	_ = v.Unmarshal(&r)
	r.Phrases = defaultPhrases()
	r.Resolutions = defaultResolutions()
	normalizeRules(&r)
	return r
}

func setRuleDefaults(v *viper.Viper) {
	v.SetDefault("lexical_weight", 0.6)
	v.SetDefault("fraud_threshold", 0.70)
	v.SetDefault("refund_threshold", 0.60)
	v.SetDefault("failed_threshold", 0.60)
	v.SetDefault("duplicate_text_threshold", 0.70)
	v.SetDefault("floor_threshold", 0.45)
	v.SetDefault("duplicate_confidence", 0.95)
	v.SetDefault("failed_status_bump", 0.15)
	v.SetDefault("confidence_cap", 0.95)
	v.SetDefault("duplicate_window", "3m")
}

// Category keys and phrases are matched lower-cased; normalizing here keeps
// the scorers free of case handling.
func normalizeRules(r *Rules) {
	phrases := make(map[string][]string, len(r.Phrases))
	for cat, list := range r.Phrases {
		out := make([]string, 0, len(list))
		for _, p := range list {
			p = strings.ToLower(strings.TrimSpace(p))
			if p != "" {
				out = append(out, p)
			}
		}
		phrases[strings.ToUpper(strings.TrimSpace(cat))] = out
	}
	r.Phrases = phrases

	resolutions := make(map[string]Resolution, len(r.Resolutions))
	for cat, res := range r.Resolutions {
		resolutions[strings.ToUpper(strings.TrimSpace(cat))] = res
	}
	r.Resolutions = resolutions
}

func defaultPhrases() map[string][]string {
	return map[string][]string{
		"FRAUD": {
			"fraud", "unauthorized", "suspicious", "chargeback",
			"i didn't make this payment",
			"not my transaction",
			"do not recognize this charge",
			"someone else used my card",
			"hacked",
		},
		"DUPLICATE_CHARGE": {
			"charged twice", "duplicate charge", "double charged",
			"billed twice", "same charge appeared twice",
		},
		"REFUND_PENDING": {
			"refund", "waiting for money back", "reversed", "pending refund",
			"refund not received", "amount not reversed",
		},
		"FAILED_TRANSACTION": {
			"failed", "money debited but not processed", "payment failed",
			"transaction declined", "gateway failed",
		},
	}
}

func defaultResolutions() map[string]Resolution {
	return map[string]Resolution{
		"DUPLICATE_CHARGE": {
			Action:        "Auto-refund",
			Justification: "High confidence duplicate transaction pattern detected.",
		},
		"FRAUD": {
			Action:        "Mark as potential fraud & Escalate to bank",
			Justification: "Transaction shows strong indicators of potential fraud.",
		},
		"FAILED_TRANSACTION": {
			Action:        "Manual review",
			Justification: "Customer claims debit despite failed status. Verify and process manual refund.",
		},
		"REFUND_PENDING": {
			Action:        "Escalate to bank",
			Justification: "Customer is waiting for a refund. Trace status with payment gateway or bank.",
		},
		"OTHERS": {
			Action:        "Ask for more info",
			Justification: "The nature of the dispute is unclear and requires more details from the customer.",
		},
	}
}
