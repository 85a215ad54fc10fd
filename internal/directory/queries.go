package directory

// Search bases and filters for the role model subtrees. The container DNs
// are fixed by the identity applications schema.
const (
	RolesBaseDN        = "cn=RoleDefs,cn=RoleConfig,cn=AppConfig,cn=UserApplication,cn=DriverSet,o=System"
	RolesFilter        = "(objectClass=nrfRole)"
	ResourcesBaseDN    = "cn=ResourceDefs,cn=RoleConfig,cn=AppConfig,cn=UserApplication,cn=DriverSet,o=System"
	ResourcesFilter    = "(objectClass=nrfResource)"
	AssociationsBaseDN = "cn=ResourceAssociations,cn=RoleConfig,cn=AppConfig,cn=UserApplication,cn=DriverSet,o=System"
	// Only active associations (nrfStatus 50) are picked up.
	AssociationsFilter = "(&(objectClass=nrfResourceAssociation)(nrfStatus=50))"
)

// RolesQuery selects all role definitions.
func RolesQuery() Query {
	return Query{
		BaseDN:     RolesBaseDN,
		Filter:     RolesFilter,
		Attributes: []string{"dn", "nrfRoleLevel", "nrfLocalizedNames", "nrfLocalizedDescrs", "nrfRoleCategoryKey", "nrfParentRoles"},
	}
}

// ResourcesQuery selects all resource definitions.
func ResourcesQuery() Query {
	return Query{
		BaseDN:     ResourcesBaseDN,
		Filter:     ResourcesFilter,
		Attributes: []string{"dn", "nrfLocalizedNames", "nrfLocalizedDescrs", "nrfCategoryKey", "nrfAllowMulti", "nrfEntitlementRef"},
	}
}

// AssociationsQuery selects the active role-to-resource associations.
func AssociationsQuery() Query {
	return Query{
		BaseDN:     AssociationsBaseDN,
		Filter:     AssociationsFilter,
		Attributes: []string{"dn", "nrfRole", "nrfResource", "nrfDynamicParmVals", "nrfStatus", "createTimestamp", "modifyTimestamp"},
	}
}
