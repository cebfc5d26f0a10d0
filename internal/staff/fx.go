package staff

import (
	"github.com/smallbiznis/opsdesk/internal/staff/repository"
	"github.com/smallbiznis/opsdesk/internal/staff/service"
	"go.uber.org/fx"
)

var Module = fx.Module("staff.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
