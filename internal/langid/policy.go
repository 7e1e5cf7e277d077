package langid

import (
	"fmt"
	"strings"

	"subextract/internal/config"
	"subextract/internal/language"
)

// Policy decides whether a classified line is kept.
type Policy struct {
	Mode          string
	Target        string
	MinConfidence float64
}

// PolicyFromConfig converts the [language] section into a Policy.
func PolicyFromConfig(cfg config.Language) Policy {
	return Policy{
		Mode:          cfg.Policy,
		Target:        language.ToISO2(cfg.Target),
		MinConfidence: cfg.MinConfidence,
	}
}

// KeepAll accepts every line.
func KeepAll() Policy {
	return Policy{Mode: config.PolicyKeepAll}
}

// KeepOnly accepts lines in target with confidence strictly above min.
func KeepOnly(target string, minConfidence float64) Policy {
	return Policy{Mode: config.PolicyKeepOnly, Target: language.ToISO2(target), MinConfidence: minConfidence}
}

// Validate reports configuration mistakes.
func (p Policy) Validate() error {
	switch p.Mode {
	case config.PolicyKeepAll:
		return nil
	case config.PolicyKeepOnly:
		if strings.TrimSpace(p.Target) == "" {
			return fmt.Errorf("keep-only policy requires a target language")
		}
		if p.MinConfidence < 0 || p.MinConfidence > 1 {
			return fmt.Errorf("min confidence must be within [0,1], got %v", p.MinConfidence)
		}
		return nil
	default:
		return fmt.Errorf("unknown language policy %q", p.Mode)
	}
}

// Accept reports whether a line classified as r should be kept.
func (p Policy) Accept(r Result) bool {
	if p.Mode == config.PolicyKeepAll {
		return true
	}
	if language.IsUnknown(r.Language) {
		return false
	}
	return strings.EqualFold(r.Language, p.Target) && r.Confidence > p.MinConfidence
}

func (p Policy) String() string {
	if p.Mode == config.PolicyKeepAll {
		return config.PolicyKeepAll
	}
	return fmt.Sprintf("%s(%s, %.2f)", p.Mode, p.Target, p.MinConfidence)
}
