package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roleviz/roleviz/internal/directory"
	"github.com/roleviz/roleviz/internal/sync"
)

// Seeds a small role model for local development. The fixtures pass
// through the same decoders a real run uses, so the stored rows look
// exactly like production output.
func main() {
	dsn := getenv("PG_DSN", "host=localhost port=5432 user=roleviz password=roleviz dbname=idm_rolemanagement_prod sslmode=disable")
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	repo := sync.NewRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}
	watermark := time.Now().UTC()

	fmt.Println("→ Seeding roles...")
	if err := repo.UpsertRoles(ctx, demoRoles(), watermark); err != nil {
		log.Fatalf("seed roles: %v", err)
	}

	fmt.Println("→ Seeding resources...")
	if err := repo.UpsertResources(ctx, demoResources(), watermark); err != nil {
		log.Fatalf("seed resources: %v", err)
	}

	fmt.Println("→ Seeding associations...")
	if err := repo.UpsertAssociations(ctx, demoAssociations(), watermark); err != nil {
		log.Fatalf("seed associations: %v", err)
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

func demoRoles() []sync.Role {
	entries := []directory.Entry{
		{DN: "cn=all-employees,cn=Level30," + directory.RolesBaseDN, Attrs: map[string][]string{
			"nrfRoleLevel":       {"30"},
			"nrfLocalizedNames":  {"en~All Employees|de~Alle Mitarbeiter"},
			"nrfLocalizedDescrs": {"en~Base role held by every active employee"},
			"nrfRoleCategoryKey": {"default"},
		}},
		{DN: "cn=finance,cn=Level20," + directory.RolesBaseDN, Attrs: map[string][]string{
			"nrfRoleLevel":       {"20"},
			"nrfLocalizedNames":  {"en~Finance|de~Finanzen"},
			"nrfRoleCategoryKey": {"finance"},
			"nrfParentRoles":     {"cn=all-employees,cn=Level30," + directory.RolesBaseDN},
		}},
		{DN: "cn=finance-admin,cn=Level10," + directory.RolesBaseDN, Attrs: map[string][]string{
			"nrfRoleLevel":       {"10"},
			"nrfLocalizedNames":  {"en~Finance Administrator|de~Finanzadministrator"},
			"nrfLocalizedDescrs": {"en~Grants posting and closing rights in FI"},
			"nrfRoleCategoryKey": {"finance", "admin"},
			"nrfParentRoles":     {"cn=finance,cn=Level20," + directory.RolesBaseDN},
		}},
		{DN: "cn=it-operations,cn=Level20," + directory.RolesBaseDN, Attrs: map[string][]string{
			"nrfRoleLevel":       {"20"},
			"nrfLocalizedNames":  {"en~IT Operations"},
			"nrfRoleCategoryKey": {"it"},
			"nrfParentRoles":     {"cn=all-employees,cn=Level30," + directory.RolesBaseDN},
		}},
	}

	roles := make([]sync.Role, 0, len(entries))
	for _, e := range entries {
		roles = append(roles, sync.RoleFromEntry(e))
	}
	return roles
}

func demoResources() []sync.Resource {
	entries := []directory.Entry{
		{DN: "cn=sap-fi-posting," + directory.ResourcesBaseDN, Attrs: map[string][]string{
			"nrfLocalizedNames":  {"en~SAP FI Posting|de~SAP FI Buchung"},
			"nrfLocalizedDescrs": {"en~Posting permission in the FI module"},
			"nrfCategoryKey":     {"finance"},
			"nrfAllowMulti":      {"false"},
			"nrfEntitlementRef":  {`cn=SAPDriver,cn=driverset1,o=system#1#<ref><src>SAP-FI</src><id>POSTING</id><param>{"ID":"0100","ID2":"FI"}</param></ref>`},
		}},
		{DN: "cn=ad-group-fileshare," + directory.ResourcesBaseDN, Attrs: map[string][]string{
			"nrfLocalizedNames": {"en~Fileshare Access"},
			"nrfCategoryKey":    {"it"},
			"nrfAllowMulti":     {"true"},
			"nrfEntitlementRef": {`cn=ADDriver,cn=driverset1,o=system#1#<ref><src>AD</src><id>GROUP</id><param>CN=fileshare,OU=groups,DC=example,DC=com</param></ref>`},
		}},
	}

	resources := make([]sync.Resource, 0, len(entries))
	for _, e := range entries {
		resources = append(resources, sync.ResourceFromEntry(e))
	}
	return resources
}

func demoAssociations() []sync.Association {
	entries := []directory.Entry{
		{DN: "cn=20240115103000-1a7f," + directory.AssociationsBaseDN, Attrs: map[string][]string{
			"nrfRole":            {"cn=finance-admin,cn=Level10," + directory.RolesBaseDN},
			"nrfResource":        {"cn=sap-fi-posting," + directory.ResourcesBaseDN},
			"nrfStatus":          {"50"},
			"nrfDynamicParmVals": {`<parameter><value>{&quot;ID&quot;:&quot;0100&quot;,&quot;ID2&quot;:&quot;FI&quot;}</value></parameter>`},
			"createTimestamp":    {"20240115103000Z"},
			"modifyTimestamp":    {"20240116090000Z"},
		}},
		{DN: "cn=20240201141500-3c02," + directory.AssociationsBaseDN, Attrs: map[string][]string{
			"nrfRole":         {"cn=it-operations,cn=Level20," + directory.RolesBaseDN},
			"nrfResource":     {"cn=ad-group-fileshare," + directory.ResourcesBaseDN},
			"nrfStatus":       {"50"},
			"createTimestamp": {"20240201141500Z"},
			"modifyTimestamp": {"20240201141500Z"},
		}},
	}

	assocs := make([]sync.Association, 0, len(entries))
	for _, e := range entries {
		assocs = append(assocs, sync.AssociationFromEntry(e))
	}
	return assocs
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
