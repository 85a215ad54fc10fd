package sync

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/roleviz/roleviz/internal/directory"
	"github.com/roleviz/roleviz/internal/nrf"
)

// Role is a decoded nrfRole entry ready for persistence. LocalizedNames
// and LocalizedDescrs hold JSON documents keyed by language.
type Role struct {
	DN              string
	Level           string
	LocalizedNames  string
	LocalizedDescrs string
	CategoryKey     string
	ParentDNs       []string
}

// Resource is a decoded nrfResource entry.
type Resource struct {
	DN              string
	LocalizedNames  string
	LocalizedDescrs string
	CategoryKey     string
	AllowMulti      string
	Entitlement     nrf.EntitlementRef
}

// Association is a decoded nrfResourceAssociation entry. RawParams keeps
// the original nrfDynamicParmVals value; ParamsJSON is the extracted JSON
// document, or "" when extraction failed.
type Association struct {
	DN              string
	RoleDN          string
	ResourceDN      string
	RawParams       string
	ParamsJSON      string
	Status          string
	CreateTimestamp string
	ModifyTimestamp string
}

// EntityOutcome reports what happened to one entity type during a run.
type EntityOutcome struct {
	Found  int
	Stored int
	Failed bool
}

// Summary aggregates the outcome of a reconciliation run.
type Summary struct {
	Watermark    time.Time
	DryRun       bool
	Roles        EntityOutcome
	Resources    EntityOutcome
	Associations EntityOutcome
	Marked       map[string]int64
	Purged       map[string]int64
}

// RoleFromEntry decodes a role entry. Multi-valued category keys are
// sorted before joining so the stored value is stable across runs.
func RoleFromEntry(e directory.Entry) Role {
	keys := append([]string(nil), e.Values("nrfRoleCategoryKey")...)
	sort.Strings(keys)

	return Role{
		DN:              e.DN,
		Level:           e.Value("nrfRoleLevel"),
		LocalizedNames:  localizedJSON(e.Value("nrfLocalizedNames")),
		LocalizedDescrs: localizedJSON(e.Value("nrfLocalizedDescrs")),
		CategoryKey:     strings.Join(keys, "|"),
		ParentDNs:       e.Values("nrfParentRoles"),
	}
}

// ResourceFromEntry decodes a resource entry.
func ResourceFromEntry(e directory.Entry) Resource {
	return Resource{
		DN:              e.DN,
		LocalizedNames:  localizedJSON(e.Value("nrfLocalizedNames")),
		LocalizedDescrs: localizedJSON(e.Value("nrfLocalizedDescrs")),
		CategoryKey:     e.Value("nrfCategoryKey"),
		AllowMulti:      e.Value("nrfAllowMulti"),
		Entitlement:     nrf.DecodeEntitlementRef(e.Value("nrfEntitlementRef")),
	}
}

// AssociationFromEntry decodes an association entry.
func AssociationFromEntry(e directory.Entry) Association {
	raw := e.Value("nrfDynamicParmVals")
	return Association{
		DN:              e.DN,
		RoleDN:          e.Value("nrfRole"),
		ResourceDN:      e.Value("nrfResource"),
		RawParams:       raw,
		ParamsJSON:      nrf.DecodeDynamicParams(raw),
		Status:          e.Value("nrfStatus"),
		CreateTimestamp: e.Value("createTimestamp"),
		ModifyTimestamp: e.Value("modifyTimestamp"),
	}
}

// localizedJSON renders a localized attribute as a JSON document. Map
// marshalling sorts keys, so equal inputs always produce equal output.
func localizedJSON(raw string) string {
	doc, _ := json.Marshal(nrf.DecodeLocalizedText(raw))
	return string(doc)
}
