package domain

import "fmt"

// Filter kinds. One per supported source adapter.
const (
	KindNotion   = "notion"
	KindObsidian = "obsidian"
)

// IntegrationFilter scopes what an adapter pulls during one cycle.
// It is a tagged variant: exactly the fields for its Kind are set.
type IntegrationFilter struct {
	// Kind selects the variant ("notion" or "obsidian").
	Kind string

	// DatabaseIDs lists the Notion databases to pull from.
	// Only valid when Kind == "notion".
	DatabaseIDs []string

	// Patterns lists doublestar glob patterns selecting vault files.
	// Only valid when Kind == "obsidian".
	Patterns []string
}

// NotionFilter builds a filter scoping a pull to the given databases.
func NotionFilter(databaseIDs ...string) IntegrationFilter {
	return IntegrationFilter{Kind: KindNotion, DatabaseIDs: databaseIDs}
}

// ObsidianFilter builds a filter scoping a pull to vault files
// matching the given glob patterns.
func ObsidianFilter(patterns ...string) IntegrationFilter {
	return IntegrationFilter{Kind: KindObsidian, Patterns: patterns}
}

// Validate checks the tagged-variant shape: a known kind with the
// fields belonging to that kind.
func (f IntegrationFilter) Validate() error {
	switch f.Kind {
	case KindNotion:
		if len(f.Patterns) > 0 {
			return fmt.Errorf("%w: notion filter carries obsidian patterns", ErrInvalidFilter)
		}
		if len(f.DatabaseIDs) == 0 {
			return fmt.Errorf("%w: notion filter requires at least one database", ErrInvalidFilter)
		}
	case KindObsidian:
		if len(f.DatabaseIDs) > 0 {
			return fmt.Errorf("%w: obsidian filter carries notion databases", ErrInvalidFilter)
		}
		if len(f.Patterns) == 0 {
			return fmt.Errorf("%w: obsidian filter requires at least one pattern", ErrInvalidFilter)
		}
	default:
		return fmt.Errorf("%w: unknown filter kind %q", ErrInvalidFilter, f.Kind)
	}
	return nil
}
