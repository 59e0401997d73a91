package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

const defaultSeparator = ", "

type compiledRule struct {
	name      string
	re        *regexp.Regexp
	groups    []int
	separator string
}

// CompiledProfile is a profile whose patterns are compiled and whose
// references are checked. It is read-only and safe to share.
type CompiledProfile struct {
	profile    *Profile
	rules      []compiledRule
	derived    []DerivedRule
	normalizer *Normalizer
}

// CompileProfile validates p and compiles its patterns once.
func CompileProfile(p *Profile) (*CompiledProfile, error) {
	if p == nil {
		return nil, common.NewAppError(common.CodeProfile, "nil profile", common.ErrInvalidInput)
	}
	if strings.TrimSpace(p.Name) == "" {
		return nil, profileError(p, "profile name is required")
	}
	if len(p.Fields) == 0 {
		return nil, profileError(p, "profile has no field rules")
	}

	seen := make(map[string]struct{}, len(p.Fields)+len(p.Derived))
	cp := &CompiledProfile{profile: p, normalizer: NewNormalizer(p.Symbols)}

	for _, fr := range p.Fields {
		if strings.TrimSpace(fr.Name) == "" {
			return nil, profileError(p, "field rule without a name")
		}
		if _, dup := seen[fr.Name]; dup {
			return nil, profileError(p, fmt.Sprintf("duplicate field %q", fr.Name))
		}
		seen[fr.Name] = struct{}{}

		re, err := regexp.Compile(fr.Pattern)
		if err != nil {
			return nil, profileError(p, fmt.Sprintf("field %q: %v", fr.Name, err))
		}
		groups := fr.Groups
		if len(groups) == 0 {
			if re.NumSubexp() > 0 {
				groups = []int{1}
			} else {
				groups = []int{0}
			}
		}
		for _, g := range groups {
			if g < 0 || g > re.NumSubexp() {
				return nil, profileError(p, fmt.Sprintf("field %q: group %d out of range (pattern has %d)", fr.Name, g, re.NumSubexp()))
			}
		}
		sep := fr.Separator
		if sep == "" {
			sep = defaultSeparator
		}
		cp.rules = append(cp.rules, compiledRule{name: fr.Name, re: re, groups: groups, separator: sep})
	}

	for _, dr := range p.Derived {
		if strings.TrimSpace(dr.Name) == "" {
			return nil, profileError(p, "derived rule without a name")
		}
		if _, dup := seen[dr.Name]; dup {
			return nil, profileError(p, fmt.Sprintf("duplicate field %q", dr.Name))
		}
		if len(dr.Inputs) == 0 {
			return nil, profileError(p, fmt.Sprintf("derived field %q has no inputs", dr.Name))
		}
		for _, in := range dr.Inputs {
			if _, ok := seen[in]; !ok {
				return nil, profileError(p, fmt.Sprintf("derived field %q references unknown field %q", dr.Name, in))
			}
		}
		if dr.Compute == nil {
			fn, ok := builtinOps[dr.Op]
			if !ok {
				return nil, profileError(p, fmt.Sprintf("derived field %q: unknown op %q", dr.Name, dr.Op))
			}
			dr.Compute = fn
		}
		seen[dr.Name] = struct{}{}
		cp.derived = append(cp.derived, dr)
	}
	return cp, nil
}

func profileError(p *Profile, msg string) error {
	return common.NewAppError(common.CodeProfile, fmt.Sprintf("profile %q: %s", p.Name, msg), common.ErrInvalidInput)
}

func (cp *CompiledProfile) Name() string            { return cp.profile.Name }
func (cp *CompiledProfile) Version() string         { return cp.profile.Version }
func (cp *CompiledProfile) Profile() *Profile       { return cp.profile }
func (cp *CompiledProfile) Normalizer() *Normalizer { return cp.normalizer }
func (cp *CompiledProfile) DerivedRules() []DerivedRule {
	return append([]DerivedRule(nil), cp.derived...)
}

// FieldNames returns every field name of the profile in record order.
func (cp *CompiledProfile) FieldNames() []string { return cp.profile.FieldNames() }
