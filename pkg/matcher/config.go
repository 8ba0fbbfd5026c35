package matcher

import "github.com/yurifrl/ynab-reconciler/pkg/money"

// Config holds the matching policy. Scores are on a 0-100 scale.
type Config struct {
	AutoMatchThreshold   int `mapstructure:"auto_match_threshold" json:"auto_match_threshold" yaml:"auto_match_threshold"`
	SuggestionThreshold  int `mapstructure:"suggestion_threshold" json:"suggestion_threshold" yaml:"suggestion_threshold"`
	AmountToleranceCents int `mapstructure:"amount_tolerance_cents" json:"amount_tolerance_cents" yaml:"amount_tolerance_cents"`
	DateToleranceDays    int `mapstructure:"date_tolerance_days" json:"date_tolerance_days" yaml:"date_tolerance_days"`
	// NearMatchBand is how close to a threshold a score must be to be
	// reported as a near miss.
	NearMatchBand int `mapstructure:"near_match_band" json:"near_match_band" yaml:"near_match_band"`
	// TieBand is the score distance within which candidates are ranked by
	// clearing status and date distance instead of raw score.
	TieBand int `mapstructure:"tie_band" json:"tie_band" yaml:"tie_band"`
}

func DefaultConfig() Config {
	return Config{
		AutoMatchThreshold:   90,
		SuggestionThreshold:  60,
		AmountToleranceCents: 1,
		DateToleranceDays:    2,
		NearMatchBand:        10,
		TieBand:              5,
	}
}

// AmountTolerance returns the amount tolerance in milliunits.
func (c Config) AmountTolerance() money.Milliunits {
	return money.Milliunits(c.AmountToleranceCents) * money.PerCent
}

func (c Config) tier(score int) Confidence {
	switch {
	case score >= c.AutoMatchThreshold:
		return High
	case score >= c.SuggestionThreshold:
		return Medium
	default:
		return Low
	}
}
