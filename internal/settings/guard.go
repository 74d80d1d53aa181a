package settings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AdamLovattDevOps/slow-wifi/internal/execx"
	apperrors "github.com/AdamLovattDevOps/slow-wifi/pkg/errors"
)

// Guard owns the host's mutable network configuration for the duration of
// a run. It is the only component allowed to mutate settings; everything
// else goes through it, which is what enforces the single-writer model.
//
// Lifecycle: VerifyPrivilege -> Capture -> Apply... -> RestoreAll.
type Guard struct {
	runner    execx.Runner
	registry  []Descriptor
	toggles   []Toggle
	mu        sync.Mutex
	captured  map[string]string
	verified  bool
	mutatable map[string]bool // toggles that can actually be flipped here
}

func NewGuard(runner execx.Runner) *Guard {
	return NewGuardWith(runner, Registry(), Toggles())
}

// NewGuardWith builds a guard over an explicit catalog, used by tests.
func NewGuardWith(runner execx.Runner, registry []Descriptor, toggles []Toggle) *Guard {
	return &Guard{
		runner:    runner,
		registry:  registry,
		toggles:   toggles,
		mutatable: make(map[string]bool),
	}
}

// VerifyPrivilege confirms that passwordless sudo is currently available.
// It must succeed before Capture; a run that cannot restore settings must
// never capture (or mutate) them in the first place.
func (g *Guard) VerifyPrivilege(ctx context.Context) error {
	if err := g.runner.Run(ctx, "sudo", "-n", "true"); err != nil {
		return fmt.Errorf("%w: run 'sudo -v' first: %v", apperrors.ErrPrivilegeRequired, err)
	}
	g.mu.Lock()
	g.verified = true
	g.mu.Unlock()
	return nil
}

// Capture reads and stores the current value of every registered setting
// and both ad-hoc toggles. It must be called exactly once, before any
// Apply; the captured map is the sole source of truth for restoration.
func (g *Guard) Capture(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.captured != nil {
		return apperrors.ErrAlreadyCaptured
	}

	captured := make(map[string]string, len(g.registry)+len(g.toggles))
	for _, d := range g.registry {
		raw, err := g.runner.Output(ctx, d.ReadCmd[0], d.ReadCmd[1:]...)
		if err != nil {
			return &apperrors.SettingError{Setting: d.Name, Op: "read", Err: err}
		}
		captured[d.Name] = d.Parse(raw)
		logrus.WithFields(logrus.Fields{"setting": d.Name, "value": captured[d.Name]}).Debug("captured")
	}
	for _, t := range g.toggles {
		captured[t.Name] = t.Read(ctx, g.runner)
		g.mutatable[t.Name] = t.Available(ctx, g.runner)
		logrus.WithFields(logrus.Fields{"setting": t.Name, "value": captured[t.Name]}).Debug("captured")
	}

	g.captured = captured
	logrus.WithField("settings", len(captured)).Info("original settings captured")
	return nil
}

// Captured returns a copy of the captured original values.
func (g *Guard) Captured() map[string]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]string, len(g.captured))
	for k, v := range g.captured {
		out[k] = v
	}
	return out
}

// Apply enables or disables one setting or toggle by name. It refuses to
// mutate anything before privilege verification and state capture; that
// refusal is an error, never a silent no-op.
func (g *Guard) Apply(ctx context.Context, name string, enabled bool) error {
	g.mu.Lock()
	if !g.verified {
		g.mu.Unlock()
		return fmt.Errorf("apply %q: %w", name, apperrors.ErrPrivilegeRequired)
	}
	if g.captured == nil {
		g.mu.Unlock()
		return fmt.Errorf("apply %q: %w", name, apperrors.ErrNotCaptured)
	}
	g.mu.Unlock()

	if d, ok := g.descriptor(name); ok {
		value := d.DisableValue
		if enabled {
			value = d.EnableValue
		}
		cmd := d.SetCmd(value)
		if err := g.runner.Run(ctx, cmd[0], cmd[1:]...); err != nil {
			return &apperrors.SettingError{Setting: name, Op: "apply", Err: err}
		}
		return nil
	}
	if t, ok := g.toggle(name); ok {
		if !g.mutatable[name] {
			return fmt.Errorf("apply %q: toggle not mutatable on this host", name)
		}
		if err := t.Set(ctx, g.runner, enabled); err != nil {
			return &apperrors.SettingError{Setting: name, Op: "apply", Err: err}
		}
		return nil
	}
	return fmt.Errorf("apply %q: %w", name, apperrors.ErrUnknownSetting)
}

// RestoreAll reapplies every captured original value. Settings are
// orthogonal, so order doesn't matter. Idempotent and safe to call
// repeatedly; callers defer it on every orchestrator exit path so the
// host is never left perturbed, even under interruption mid-experiment.
//
// Restoration is deliberately best-effort per setting: one failed restore
// must not prevent the others from being attempted.
func (g *Guard) RestoreAll(ctx context.Context) error {
	g.mu.Lock()
	captured := g.captured
	g.mu.Unlock()

	if captured == nil {
		// Nothing was captured, nothing to undo.
		return nil
	}

	var firstErr error
	for _, d := range g.registry {
		original, ok := captured[d.Name]
		if !ok {
			continue
		}
		cmd := d.SetCmd(original)
		if err := g.runner.Run(ctx, cmd[0], cmd[1:]...); err != nil {
			logrus.WithError(err).WithField("setting", d.Name).Error("restore failed")
			if firstErr == nil {
				firstErr = &apperrors.SettingError{Setting: d.Name, Op: "restore", Err: err}
			}
			continue
		}
		logrus.WithFields(logrus.Fields{"setting": d.Name, "value": original}).Info("restored")
	}
	for _, t := range g.toggles {
		original, ok := captured[t.Name]
		if !ok || !g.mutatable[t.Name] {
			continue
		}
		if err := t.Set(ctx, g.runner, original == "on"); err != nil {
			logrus.WithError(err).WithField("setting", t.Name).Error("restore failed")
			if firstErr == nil {
				firstErr = &apperrors.SettingError{Setting: t.Name, Op: "restore", Err: err}
			}
			continue
		}
		logrus.WithFields(logrus.Fields{"setting": t.Name, "value": original}).Info("restored")
	}
	return firstErr
}

// ReadCurrent reads the live value of one setting or toggle by name,
// bypassing the captured state. Used to verify restoration.
func (g *Guard) ReadCurrent(ctx context.Context, name string) (string, error) {
	if d, ok := g.descriptor(name); ok {
		raw, err := g.runner.Output(ctx, d.ReadCmd[0], d.ReadCmd[1:]...)
		if err != nil {
			return "", &apperrors.SettingError{Setting: name, Op: "read", Err: err}
		}
		return d.Parse(raw), nil
	}
	if t, ok := g.toggle(name); ok {
		return t.Read(ctx, g.runner), nil
	}
	return "", fmt.Errorf("read %q: %w", name, apperrors.ErrUnknownSetting)
}

// Names returns every guarded name in experiment order: descriptors
// first, then the toggles that can be mutated on this host.
func (g *Guard) Names() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, 0, len(g.registry)+len(g.toggles))
	for _, d := range g.registry {
		names = append(names, d.Name)
	}
	for _, t := range g.toggles {
		if g.mutatable[t.Name] {
			names = append(names, t.Name)
		}
	}
	return names
}

// SettleDelay returns the post-toggle settle time for a name; zero for
// parameter-level settings that take effect immediately.
func (g *Guard) SettleDelay(name string) time.Duration {
	if t, ok := g.toggle(name); ok {
		return t.SettleDelay
	}
	return 0
}

func (g *Guard) descriptor(name string) (Descriptor, bool) {
	for _, d := range g.registry {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

func (g *Guard) toggle(name string) (Toggle, bool) {
	for _, t := range g.toggles {
		if t.Name == name {
			return t, true
		}
	}
	return Toggle{}, false
}
