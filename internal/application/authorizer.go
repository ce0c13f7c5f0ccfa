package application

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"launch-workflow/internal/domain"
)

// Capability is what a single role grants: sign-off or visibility on at most
// one section, and independently the ability to execute the launch
// transition.
type Capability struct {
	Section    domain.Section `yaml:"section,omitempty"`
	CanApprove bool           `yaml:"can_approve"`
	CanView    bool           `yaml:"can_view"`
	CanLaunch  bool           `yaml:"can_launch"`
}

// CapabilityTable maps every known role to its capability. It is the only
// place role names carry meaning; nothing else in the subsystem inspects a
// role string.
type CapabilityTable map[domain.Role]Capability

// DefaultCapabilityTable grants, per section, an approver and an admin role
// (both may sign off) plus a view-only viewer role, and a launch capability to
// launch managers.
func DefaultCapabilityTable() CapabilityTable {
	table := CapabilityTable{
		"launch_manager": {CanLaunch: true},
	}
	for _, section := range domain.AllSections() {
		table[domain.Role(string(section)+"_approver")] = Capability{Section: section, CanApprove: true, CanView: true}
		table[domain.Role(string(section)+"_admin")] = Capability{Section: section, CanApprove: true, CanView: true}
		table[domain.Role(string(section)+"_viewer")] = Capability{Section: section, CanView: true}
	}
	return table
}

// LoadCapabilityTable reads a role -> capability mapping from a YAML file,
// for deployments whose role names differ from the defaults.
func LoadCapabilityTable(path string) (CapabilityTable, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var table CapabilityTable
	if err := yaml.Unmarshal(contents, &table); err != nil {
		return nil, err
	}
	for role, capability := range table {
		if capability.Section != "" {
			if _, err := domain.ParseSection(string(capability.Section)); err != nil {
				return nil, fmt.Errorf("role %q: unknown section %q: %w", role, capability.Section, err)
			}
		}
		if (capability.CanApprove || capability.CanView) && capability.Section == "" {
			return nil, fmt.Errorf("role %q: section capability without a section: %w", role, domain.ErrInvalidInput)
		}
	}
	return table, nil
}

// RoleAuthorizer resolves whether an identity, through its roles, may act on
// a section or launch. It is a pure function of the capability table and the
// supplied role set; it performs no authentication.
type RoleAuthorizer struct {
	table CapabilityTable
}

func NewRoleAuthorizer(table CapabilityTable) *RoleAuthorizer {
	return &RoleAuthorizer{table: table}
}

func (a *RoleAuthorizer) CanApprove(identity domain.Identity, section domain.Section) bool {
	for _, role := range identity.Roles {
		if capability, ok := a.table[role]; ok && capability.CanApprove && capability.Section == section {
			return true
		}
	}
	return false
}

func (a *RoleAuthorizer) CanLaunch(identity domain.Identity) bool {
	for _, role := range identity.Roles {
		if capability, ok := a.table[role]; ok && capability.CanLaunch {
			return true
		}
	}
	return false
}

// CanViewSection is broader than CanApprove: approval capability implies
// visibility.
func (a *RoleAuthorizer) CanViewSection(identity domain.Identity, section domain.Section) bool {
	for _, role := range identity.Roles {
		capability, ok := a.table[role]
		if ok && capability.Section == section && (capability.CanView || capability.CanApprove) {
			return true
		}
	}
	return false
}
