package service

import "github.com/mmynk/mealsplit/pkg/api"

// PublicProcedures can be called without a token. Everything else requires
// an authenticated caller.
var PublicProcedures = []string{
	api.SplitServiceGetSplitProcedure,
	api.SplitServiceListSplitsProcedure,
}
