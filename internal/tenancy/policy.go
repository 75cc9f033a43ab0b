package tenancy

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Permission string

const (
	PermReviewsRead    Permission = "reviews:read"
	PermReviewsWrite   Permission = "reviews:write"
	PermCompaniesRead  Permission = "companies:read"
	PermCompaniesWrite Permission = "companies:write"
	PermBranchesRead   Permission = "branches:read"
	PermBranchesWrite  Permission = "branches:write"
	PermQrManage       Permission = "qr:manage"

	permAll Permission = "*"
)

var knownPermissions = map[Permission]struct{}{
	PermReviewsRead: {}, PermReviewsWrite: {},
	PermCompaniesRead: {}, PermCompaniesWrite: {},
	PermBranchesRead: {}, PermBranchesWrite: {},
	PermQrManage: {}, permAll: {},
}

//go:embed roles.yaml
var defaultPolicyYAML []byte

type roleSpec struct {
	Description string   `yaml:"description"`
	Elevated    bool     `yaml:"elevated"`
	Permissions []string `yaml:"permissions"`
}

type policyFile struct {
	Roles map[string]roleSpec `yaml:"roles"`
}

type rolePolicy struct {
	description string
	elevated    bool
	perms       map[Permission]struct{}
}

// Policy maps roles to permissions and to the elevated (scope-bypassing) flag.
type Policy struct {
	roles map[Role]rolePolicy
}

func ParsePolicy(b []byte) (*Policy, error) {
	var f policyFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse role policy: %w", err)
	}
	if len(f.Roles) == 0 {
		return nil, fmt.Errorf("role policy defines no roles")
	}
	p := &Policy{roles: make(map[Role]rolePolicy, len(f.Roles))}
	for name, spec := range f.Roles {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("role policy: empty role name")
		}
		rp := rolePolicy{
			description: spec.Description,
			elevated:    spec.Elevated,
			perms:       make(map[Permission]struct{}, len(spec.Permissions)),
		}
		for _, raw := range spec.Permissions {
			perm := Permission(strings.TrimSpace(raw))
			if _, ok := knownPermissions[perm]; !ok {
				return nil, fmt.Errorf("role policy: role %q: unknown permission %q", name, raw)
			}
			rp.perms[perm] = struct{}{}
		}
		p.roles[Role(name)] = rp
	}
	return p, nil
}

// LoadPolicy reads the policy file at path, or the embedded default when path is empty.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return ParsePolicy(defaultPolicyYAML)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read role policy: %w", err)
	}
	return ParsePolicy(b)
}

func DefaultPolicy() *Policy {
	p, err := ParsePolicy(defaultPolicyYAML)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Policy) Elevated(r Role) bool { return p.roles[r].elevated }

func (p *Policy) Allows(r Role, perm Permission) bool {
	rp, ok := p.roles[r]
	if !ok {
		return false
	}
	if _, ok := rp.perms[permAll]; ok {
		return true
	}
	_, ok = rp.perms[perm]
	return ok
}

// Describe returns the human-readable role name, or the raw role for unknown roles.
func (p *Policy) Describe(r Role) string {
	if rp, ok := p.roles[r]; ok && rp.description != "" {
		return rp.description
	}
	return string(r)
}

func (p *Policy) Known(r Role) bool {
	_, ok := p.roles[r]
	return ok
}
