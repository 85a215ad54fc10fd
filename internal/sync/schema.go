package sync

// Table names shared by the reconciliation and lifecycle phases. The
// parent junction is absent from the lifecycle list: it is rebuilt from
// scratch every run and rows vanish with their roles via cascade.
const (
	TableRoles        = "viz_roles"
	TableResources    = "viz_resources"
	TableAssociations = "viz_roles_resources"
	TableRoleParents  = "viz_roles_parents"
)

// LifecycleTables lists the tables subject to stale marking and purging.
var LifecycleTables = []string{TableRoles, TableResources, TableAssociations}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS viz_roles (
		dn TEXT PRIMARY KEY,
		nrfRoleLevel TEXT,
		nrfLocalizedNames TEXT,
		nrfLocalizedDescrs TEXT,
		nrfRoleCategoryKey TEXT,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		is_deleted BOOLEAN DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS viz_roles_parents (
		child_dn TEXT REFERENCES viz_roles(dn) ON DELETE CASCADE,
		parent_dn TEXT REFERENCES viz_roles(dn) ON DELETE CASCADE,
		PRIMARY KEY (child_dn, parent_dn)
	)`,
	`CREATE TABLE IF NOT EXISTS viz_resources (
		dn TEXT PRIMARY KEY,
		nrfLocalizedNames TEXT,
		nrfLocalizedDescrs TEXT,
		nrfCategoryKey TEXT,
		nrfAllowMulti TEXT,
		entitlement_driver TEXT,
		entitlement_status TEXT,
		entitlement_xml TEXT,
		entitlement_xml_src TEXT,
		entitlement_xml_id TEXT,
		entitlement_xml_param_id TEXT,
		entitlement_xml_param_id2 TEXT,
		entitlement_xml_param_id3 TEXT,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		is_deleted BOOLEAN DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS viz_roles_resources (
		dn TEXT PRIMARY KEY,
		nrfRole TEXT,
		nrfResource TEXT,
		nrfDynamicParmVals TEXT,
		nrfdynamicparmvals_value_json TEXT,
		nrfStatus TEXT,
		createTimestamp TEXT,
		modifyTimestamp TEXT,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		is_deleted BOOLEAN DEFAULT FALSE
	)`,
	// Convenience picker for reporting queries: preferred language first,
	// then German, then whichever entry the document has. Returns NULL for
	// documents that are not valid JSON.
	`CREATE OR REPLACE FUNCTION viz_localized_text(doc TEXT, lang TEXT DEFAULT 'en')
	RETURNS TEXT AS $$
	BEGIN
		RETURN COALESCE(
			doc::jsonb ->> lang,
			doc::jsonb ->> 'de',
			(SELECT value FROM jsonb_each_text(doc::jsonb) ORDER BY key LIMIT 1)
		);
	EXCEPTION WHEN others THEN
		RETURN NULL;
	END;
	$$ LANGUAGE plpgsql IMMUTABLE`,
}
