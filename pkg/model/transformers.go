package model

import "github.com/NicolasHaas/godata/pkg/transform"

// NewUserTransformer shapes users for the API. The team include is emitted
// when the relation was loaded.
func NewUserTransformer() transform.BaseModelTransformer {
	return transform.BaseModelTransformer{Includes: map[string]transform.Transformer{
		"team": transform.AttributesTransformer{},
	}}
}

// NewTeamTransformer shapes teams; members come through the users include.
func NewTeamTransformer() transform.BaseModelTransformer {
	return transform.BaseModelTransformer{Includes: map[string]transform.Transformer{
		"users": transform.AttributesTransformer{},
	}}
}
