package constants

// Table names
const (
	TableIVRFlow = "ivr_flows"
)

// ivr_flows columns
const (
	FieldID               = "id"
	FieldTenantID         = "tenant_id"
	FieldName             = "name"
	FieldIsActive         = "is_active"
	FieldNodes            = "nodes"
	FieldVersion          = "version"
	FieldCreatedDate      = "created_date"
	FieldLastModifiedDate = "last_modified_date"
)
