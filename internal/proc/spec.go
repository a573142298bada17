package proc

import (
	"github.com/psantana5/procwatch/internal/config"
)

// Spec is the normalized, read-only definition a Process is built from.
// Services and stubs share the same spawn-argument construction; the only
// difference is that stubs never carry a restart policy.
type Spec struct {
	Name        string
	Display     string
	Image       string
	Command     string
	Directory   string
	Environment map[string]string
	Restart     config.RestartPolicy
}

// DisplayName returns the display name, falling back to the unique name.
func (s Spec) DisplayName() string {
	if s.Display != "" {
		return s.Display
	}
	return s.Name
}

// SpecFromService normalizes a service definition.
func SpecFromService(svc config.Service) Spec {
	return Spec{
		Name:        svc.Name,
		Display:     svc.Display,
		Image:       svc.Image,
		Command:     svc.Command,
		Directory:   svc.Directory,
		Environment: svc.Environment,
		Restart:     svc.Restart,
	}
}

// SpecFromStub normalizes a stub definition. Stubs have no restart policy,
// so the zero (disabled) policy applies.
func SpecFromStub(stub config.Stub) Spec {
	return Spec{
		Name:        stub.Name,
		Display:     stub.Display,
		Image:       stub.Image,
		Command:     stub.Command,
		Directory:   stub.Directory,
		Environment: stub.Environment,
	}
}
