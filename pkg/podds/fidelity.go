package podds

import "fmt"

// Fidelity enumerates how much work one posterior fit does.
// The posterior holds Samples x Chains draws; Warmup draws per chain are discarded.
type Fidelity struct {
	Name    string `yaml:"name" json:"name"`
	Samples int    `yaml:"samples" json:"samples"`
	Warmup  int    `yaml:"warmup" json:"warmup"`
	Chains  int    `yaml:"chains" json:"chains"`
}

var (
	QuickFidelity = Fidelity{Name: "quick", Samples: 500, Warmup: 500, Chains: 2}
	FullFidelity  = Fidelity{Name: "full", Samples: 2000, Warmup: 1000, Chains: 2}
)

// Draws is the number of retained posterior draws.
func (f Fidelity) Draws() int {
	return f.Samples * f.Chains
}

func (f Fidelity) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("fidelity name is empty")
	}
	if f.Samples < 4 {
		return fmt.Errorf("fidelity %q: samples must be at least 4, got: %d", f.Name, f.Samples)
	}
	if f.Warmup < 0 {
		return fmt.Errorf("fidelity %q: warmup must not be negative, got: %d", f.Name, f.Warmup)
	}
	if f.Chains < 1 {
		return fmt.Errorf("fidelity %q: chains must be positive, got: %d", f.Name, f.Chains)
	}
	return nil
}

// FidelityByName returns one of the built in tiers.
func FidelityByName(name string) (Fidelity, error) {
	switch name {
	case QuickFidelity.Name:
		return QuickFidelity, nil
	case FullFidelity.Name:
		return FullFidelity, nil
	}
	return Fidelity{}, fmt.Errorf("unknown fidelity %q", name)
}
