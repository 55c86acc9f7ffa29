package staff

import "strings"

// Role is the canonical capability tag a worker holds
type Role string

const (
	RolePharmacist Role = "PHARMACIST"
	RoleTechnician Role = "TECHNICIAN"
	RoleCashier    Role = "CASHIER"
	RoleAssistant  Role = "ASSISTANT"
)

// AllRoles lists the canonical roles in a stable order
var AllRoles = []Role{RolePharmacist, RoleTechnician, RoleCashier, RoleAssistant}

// roleSynonyms maps normalized free-form role strings to canonical roles.
// Keys are lower case with '_' and '-' folded to spaces.
var roleSynonyms = map[string]Role{
	"pharmacist":          RolePharmacist,
	"pharm":               RolePharmacist,
	"rph":                 RolePharmacist,
	"chemist":             RolePharmacist,
	"lead pharmacist":     RolePharmacist,
	"technician":          RoleTechnician,
	"tech":                RoleTechnician,
	"pharmacy technician": RoleTechnician,
	"pharmacy tech":       RoleTechnician,
	"pharmtech":           RoleTechnician,
	"lab technician":      RoleTechnician,
	"compounder":          RoleTechnician,
	"cashier":             RoleCashier,
	"clerk":               RoleCashier,
	"front desk":          RoleCashier,
	"frontdesk":           RoleCashier,
	"sales":               RoleCashier,
	"sales associate":     RoleCashier,
	"assistant":           RoleAssistant,
	"pharmacy assistant":  RoleAssistant,
	"aide":                RoleAssistant,
	"helper":              RoleAssistant,
	"intern":              RoleAssistant,
}

// ParseRole maps a free-form role string onto the canonical set.
// Unrecognized input fails with ErrUnknownRole instead of defaulting.
func ParseRole(raw string) (Role, error) {
	key := normalizeRoleKey(raw)
	if key == "" {
		return "", &ErrUnknownRole{Raw: raw}
	}
	if role, ok := roleSynonyms[key]; ok {
		return role, nil
	}
	// Canonical upper-case values round-trip
	for _, role := range AllRoles {
		if strings.EqualFold(string(role), key) {
			return role, nil
		}
	}
	return "", &ErrUnknownRole{Raw: raw}
}

// IsValid reports whether r is one of the canonical roles
func (r Role) IsValid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

func normalizeRoleKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("_", " ", "-", " ").Replace(key)
	return strings.Join(strings.Fields(key), " ")
}
