// internal/models/query_types.go
package models

type QueryType string

const (
	QueryTypeZoneList       QueryType = "zone_list"
	QueryTypeZoneDetail     QueryType = "zone_detail"
	QueryTypeProvinceReport QueryType = "province_report"
	QueryTypeLeadList       QueryType = "lead_list"
)
