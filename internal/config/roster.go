package config

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/Houeta/watchdog/internal/models"
	"github.com/spf13/viper"
)

// ConfigurationError reports a malformed roster entry. A malformed asset is
// dropped from the roster with a warning so the other assets keep running;
// competitor-level problems fail the whole load.
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string {
	return "invalid roster configuration: " + e.Detail
}

// LoadRoster reads the competitor/asset roster from a YAML file and
// validates every entry. Malformed assets are skipped, not fatal.
func LoadRoster(log *slog.Logger, path string) ([]models.RosterCompetitor, error) {
	vpr := viper.New()
	vpr.SetConfigFile(path)

	if err := vpr.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read roster file %s: %w", path, err)
	}

	var roster struct {
		Competitors []models.RosterCompetitor `mapstructure:"competitors"`
	}
	if err := vpr.Unmarshal(&roster); err != nil {
		return nil, fmt.Errorf("failed to unmarshal roster: %w", err)
	}

	if len(roster.Competitors) == 0 {
		return nil, &ConfigurationError{Detail: "at least one competitor must be configured"}
	}

	for i, comp := range roster.Competitors {
		if err := validateCompetitor(comp); err != nil {
			return nil, err
		}

		kept := comp.Assets[:0:0]
		for _, asset := range comp.Assets {
			if err := validateAsset(comp.Name, asset); err != nil {
				log.Warn("Skipping misconfigured asset", "competitor", comp.Name, "url", asset.URL, "error", err)
				continue
			}
			kept = append(kept, asset)
		}
		roster.Competitors[i].Assets = kept
	}

	return roster.Competitors, nil
}

func validateCompetitor(comp models.RosterCompetitor) error {
	if comp.Name == "" {
		return &ConfigurationError{Detail: "competitor must have a name"}
	}
	if comp.BaseURL == "" {
		return &ConfigurationError{Detail: fmt.Sprintf("competitor %q must have a base_url", comp.Name)}
	}
	if len(comp.Assets) == 0 {
		return &ConfigurationError{Detail: fmt.Sprintf("competitor %q must have at least one asset", comp.Name)}
	}

	return nil
}

func validateAsset(competitor string, asset models.RosterAsset) error {
	if !slices.Contains(models.ValidAssetTypes, asset.Type) {
		return &ConfigurationError{
			Detail: fmt.Sprintf("competitor %q: unknown asset type %q", competitor, asset.Type),
		}
	}
	if asset.URL == "" {
		return &ConfigurationError{
			Detail: fmt.Sprintf("competitor %q: asset of type %q must have a url", competitor, asset.Type),
		}
	}
	if asset.CrawlFrequency != "daily" && asset.CrawlFrequency != "weekly" {
		return &ConfigurationError{
			Detail: fmt.Sprintf("competitor %q: invalid crawl_frequency %q", competitor, asset.CrawlFrequency),
		}
	}
	switch asset.PriorityThreshold {
	case "", models.PriorityHigh, models.PriorityMedium, models.PriorityLow:
	default:
		return &ConfigurationError{
			Detail: fmt.Sprintf("competitor %q: invalid priority_threshold %q", competitor, asset.PriorityThreshold),
		}
	}

	return nil
}
