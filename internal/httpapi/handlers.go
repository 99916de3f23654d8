package httpapi

import (
	"licensing-controlplane/services/application"
	"licensing-controlplane/services/job"
	"licensing-controlplane/services/license"
	"licensing-controlplane/services/quota"

	"go.uber.org/fx"
)

// Handlers bundles the HTTP handlers over the service layer. All request
// parsing and response shaping lives here; the services stay transport-free.
type Handlers struct {
	licenses *license.Service
	apps     *application.Service
	jobs     *job.Service
	quota    *quota.Service
}

type HandlerParams struct {
	fx.In
	Licenses *license.Service
	Apps     *application.Service
	Jobs     *job.Service
	Quota    *quota.Service
}

func NewHandlers(p HandlerParams) *Handlers {
	return &Handlers{
		licenses: p.Licenses,
		apps:     p.Apps,
		jobs:     p.Jobs,
		quota:    p.Quota,
	}
}
