// Package dispatch applies mechanical updates for detected changes and
// assembles the final pass summary.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/c360studio/specsync/detect"
	"github.com/c360studio/specsync/modules"
)

// Common dispatch errors.
var (
	// ErrNoStrategy is returned when no strategy is registered for a
	// change type.
	ErrNoStrategy = errors.New("no strategy registered for change type")
)

// Strategy applies one change type's mechanical updates through the
// patchable module configuration, returning one-line descriptions of
// what it changed.
type Strategy interface {
	Apply(ctx context.Context, item detect.ChangeItem) ([]string, error)
}

// Registry maps change types to their strategies.
type Registry map[detect.ChangeType]Strategy

// NewRegistry wires the default strategy for every change type over the
// module config directory. Each strategy targets the module group its
// change type impacts.
func NewRegistry(dir *modules.Dir) Registry {
	reg := Registry{}
	for _, t := range []detect.ChangeType{
		detect.ChangeSources,
		detect.ChangeContentRules,
		detect.ChangeValidationRules,
		detect.ChangeOutputStructure,
		detect.ChangeTemplates,
	} {
		reg[t] = &moduleStrategy{
			module:   t.ImpactTarget(),
			describe: describerFor(t),
			dir:      dir,
		}
	}
	return reg
}

// moduleStrategy patches configured keys in one module group's config.
// It inspects only details whose key the module already configures,
// substitutes each new value, and rewrites the config as a whole; there
// are no partial writes.
type moduleStrategy struct {
	module   string
	describe func(d detect.Difference) string
	dir      *modules.Dir
}

// Apply loads the target module config, substitutes every matching
// detail's new value, and saves. Removed keys carry no new value and are
// left to the analyzer's manual-review routing.
func (s *moduleStrategy) Apply(ctx context.Context, item detect.ChangeItem) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg, err := s.dir.Load(s.module)
	if err != nil {
		return nil, fmt.Errorf("load %s config: %w", s.module, err)
	}

	var updates []string
	for _, d := range item.Details {
		if d.Kind == detect.DiffRemoved {
			continue
		}
		if _, ok := cfg.Get(d.Key); !ok {
			continue
		}
		if err := cfg.Set(d.Key, d.NewValue); err != nil {
			return updates, fmt.Errorf("set %s.%s: %w", s.module, d.Key, err)
		}
		updates = append(updates, s.describe(d))
	}

	if len(updates) == 0 {
		return nil, nil
	}
	if err := cfg.Save(); err != nil {
		return updates, fmt.Errorf("save %s config: %w", s.module, err)
	}
	return updates, nil
}

// sourceURLKeys are the source references described as URLs.
var sourceURLKeys = map[string]bool{
	"commands":  true,
	"tasks":     true,
	"settings":  true,
	"hooks":     true,
	"docs-repo": true,
}

// describerFor returns the one-line description builder for a change
// type.
func describerFor(t detect.ChangeType) func(detect.Difference) string {
	switch t {
	case detect.ChangeSources:
		return func(d detect.Difference) string {
			if sourceURLKeys[d.Key] {
				return fmt.Sprintf("Updated %s URL", d.Key)
			}
			return fmt.Sprintf("Updated source %q", d.Key)
		}
	case detect.ChangeContentRules:
		return func(d detect.Difference) string {
			return fmt.Sprintf("Updated content rule %q", d.Key)
		}
	case detect.ChangeValidationRules:
		return func(d detect.Difference) string {
			return fmt.Sprintf("Updated validation check %q", d.Key)
		}
	case detect.ChangeTemplates:
		return func(d detect.Difference) string {
			return fmt.Sprintf("Updated template %q", d.Key)
		}
	default:
		return func(d detect.Difference) string {
			return fmt.Sprintf("Updated %s", d.Key)
		}
	}
}
