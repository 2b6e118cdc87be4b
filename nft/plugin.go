package nft

import (
	"fmt"
	"sort"
	"sync"

	"github.com/MixinNetwork/nfcore/ledger"
	"github.com/shopspring/decimal"
)

const (
	MaxBasisPoints   = 10000
	TotalPercentage  = 100
	royaltyPrecision = 8
)

type PluginType string

const (
	PluginRoyalties PluginType = "Royalties"
)

type RuleSetKind string

const (
	RuleSetNone             RuleSetKind = "None"
	RuleSetProgramAllowList RuleSetKind = "ProgramAllowList"
	RuleSetProgramDenyList  RuleSetKind = "ProgramDenyList"
)

// RuleSet decides which programs may execute a transfer of an asset whose
// collection enforces royalties. A direct transfer by the owner has no
// program and is always compatible.
type RuleSet struct {
	Kind     RuleSetKind
	Programs []ledger.Address
}

func NoRuleSet() RuleSet {
	return RuleSet{Kind: RuleSetNone}
}

func ProgramAllowList(programs ...ledger.Address) RuleSet {
	return RuleSet{Kind: RuleSetProgramAllowList, Programs: programs}
}

func ProgramDenyList(programs ...ledger.Address) RuleSet {
	return RuleSet{Kind: RuleSetProgramDenyList, Programs: programs}
}

func (rs RuleSet) Allows(program ledger.Address) bool {
	if program == "" {
		return true
	}
	switch rs.Kind {
	case RuleSetProgramAllowList:
		return rs.contains(program)
	case RuleSetProgramDenyList:
		return !rs.contains(program)
	}
	return true
}

func (rs RuleSet) contains(program ledger.Address) bool {
	for _, p := range rs.Programs {
		if p == program {
			return true
		}
	}
	return false
}

type Creator struct {
	Address    ledger.Address
	Percentage int
}

type Royalties struct {
	BasisPoints int
	Creators    []Creator
	RuleSet     RuleSet
}

type Payout struct {
	Creator ledger.Address
	Amount  decimal.Decimal
}

// Distribute computes the royalty fee owed on amount and splits it across
// the creators by percentage. The last creator receives the rounding rest
// so that the payouts always sum to the fee.
func (r *Royalties) Distribute(amount decimal.Decimal) (decimal.Decimal, []Payout) {
	fee := amount.Mul(decimal.NewFromInt(int64(r.BasisPoints))).
		Div(decimal.NewFromInt(MaxBasisPoints)).Truncate(royaltyPrecision)
	payouts := make([]Payout, len(r.Creators))
	rest := fee
	for i, c := range r.Creators {
		share := rest
		if i < len(r.Creators)-1 {
			share = fee.Mul(decimal.NewFromInt(int64(c.Percentage))).
				Div(decimal.NewFromInt(TotalPercentage)).Truncate(royaltyPrecision)
			rest = rest.Sub(share)
		}
		payouts[i] = Payout{Creator: c.Address, Amount: share}
	}
	return fee, payouts
}

func (r *Royalties) copy() *Royalties {
	c := *r
	c.Creators = append([]Creator(nil), r.Creators...)
	c.RuleSet.Programs = append([]ledger.Address(nil), r.RuleSet.Programs...)
	return &c
}

// Plugin is a tagged variant: Type selects which payload field is set.
type Plugin struct {
	Type      PluginType
	Royalties *Royalties
}

func RoyaltiesPlugin(r Royalties) Plugin {
	return Plugin{Type: PluginRoyalties, Royalties: &r}
}

func (p Plugin) copy() Plugin {
	c := Plugin{Type: p.Type}
	if p.Royalties != nil {
		c.Royalties = p.Royalties.copy()
	}
	return c
}

// Validator checks the payload of one plugin type. It returns the failing
// field and reason, or an empty field when the payload is valid.
type Validator func(p Plugin) (field, reason string)

type Registry struct {
	mu         sync.RWMutex
	validators map[PluginType]Validator
}

func NewRegistry() *Registry {
	return &Registry{validators: make(map[PluginType]Validator)}
}

func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(PluginRoyalties, validateRoyalties)
	return r
}

func (r *Registry) Register(t PluginType, v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[t] = v
}

func (r *Registry) Types() []PluginType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]PluginType, 0, len(r.validators))
	for t := range r.validators {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

var builtinRegistry = DefaultRegistry()

// ValidatePluginConfig validates p against the built-in plugin types.
func ValidatePluginConfig(p Plugin) (Plugin, error) {
	return builtinRegistry.ValidatePluginConfig(p)
}

// ValidatePluginConfig returns a validated copy of p. It has no side effect.
func (r *Registry) ValidatePluginConfig(p Plugin) (Plugin, error) {
	return r.validate(0, p)
}

// ValidateAll validates plugins in order and stops at the first invalid
// entry. At most one plugin per type is accepted.
func (r *Registry) ValidateAll(plugins []Plugin) (map[PluginType]Plugin, error) {
	validated := make(map[PluginType]Plugin, len(plugins))
	for i, p := range plugins {
		if _, found := validated[p.Type]; found {
			return nil, &InvalidPluginConfigError{Index: i, Type: p.Type, Field: "type", Reason: "duplicated plugin type"}
		}
		v, err := r.validate(i, p)
		if err != nil {
			return nil, err
		}
		validated[p.Type] = v
	}
	return validated, nil
}

func (r *Registry) validate(index int, p Plugin) (Plugin, error) {
	r.mu.RLock()
	v, found := r.validators[p.Type]
	r.mu.RUnlock()
	if !found {
		return Plugin{}, &InvalidPluginConfigError{Index: index, Type: p.Type, Field: "type", Reason: "unknown plugin type"}
	}
	if field, reason := v(p); field != "" {
		return Plugin{}, &InvalidPluginConfigError{Index: index, Type: p.Type, Field: field, Reason: reason}
	}
	c := p.copy()
	if c.Royalties != nil && c.Royalties.RuleSet.Kind == "" {
		c.Royalties.RuleSet.Kind = RuleSetNone
	}
	return c, nil
}

func validateRoyalties(p Plugin) (string, string) {
	r := p.Royalties
	if r == nil {
		return "data", "missing royalties payload"
	}
	if r.BasisPoints < 0 || r.BasisPoints > MaxBasisPoints {
		return "basisPoints", fmt.Sprintf("%d out of [0, %d]", r.BasisPoints, MaxBasisPoints)
	}
	if len(r.Creators) == 0 {
		return "creators", "empty"
	}
	sum := 0
	seen := make(map[ledger.Address]bool, len(r.Creators))
	for i, c := range r.Creators {
		if !c.Address.Valid() {
			return fmt.Sprintf("creators[%d].address", i), fmt.Sprintf("invalid address %q", c.Address)
		}
		if seen[c.Address] {
			return fmt.Sprintf("creators[%d].address", i), fmt.Sprintf("duplicated %s", c.Address)
		}
		seen[c.Address] = true
		if c.Percentage < 0 || c.Percentage > TotalPercentage {
			return fmt.Sprintf("creators[%d].percentage", i), fmt.Sprintf("%d out of [0, %d]", c.Percentage, TotalPercentage)
		}
		sum += c.Percentage
	}
	if sum != TotalPercentage {
		return "creators", fmt.Sprintf("sum=%d≠%d", sum, TotalPercentage)
	}

	switch r.RuleSet.Kind {
	case RuleSetNone, "":
		if len(r.RuleSet.Programs) > 0 {
			return "ruleSet.programs", "must be empty for None"
		}
	case RuleSetProgramAllowList, RuleSetProgramDenyList:
		programs := make(map[ledger.Address]bool, len(r.RuleSet.Programs))
		for i, a := range r.RuleSet.Programs {
			if !a.Valid() || programs[a] {
				return fmt.Sprintf("ruleSet.programs[%d]", i), fmt.Sprintf("invalid or duplicated %q", a)
			}
			programs[a] = true
		}
	default:
		return "ruleSet", fmt.Sprintf("unknown kind %q", r.RuleSet.Kind)
	}
	return "", ""
}
