package bootstrap

import (
	"fmt"

	"github.com/agendauth/agendauth/internal/identity"
	"github.com/agendauth/agendauth/internal/service"
	"github.com/agendauth/agendauth/internal/store"
	"github.com/agendauth/agendauth/internal/utils"
)

type Services struct {
	appService      *service.AppService
	grantService    *service.GrantService
	flowService     *service.FlowService
	exchangeService *service.ExchangeService
	accessService   *service.AccessService
	verifier        identity.Verifier
}

func (app *BootstrapApp) initServices(backingStore store.Store) (Services, error) {
	services := Services{}

	secret := utils.GetSecret(app.config.Identity.Secret, app.config.Identity.SecretFile)

	verifier, err := identity.NewJWTVerifier(secret, app.config.Identity.Issuer)

	if err != nil {
		return Services{}, fmt.Errorf("failed to initialize identity verifier: %w", err)
	}

	services.verifier = verifier

	services.appService = service.NewAppService(backingStore)
	services.grantService = service.NewGrantService(backingStore)
	services.flowService = service.NewFlowService(services.appService, services.grantService, services.verifier)
	services.exchangeService = service.NewExchangeService(services.appService, services.grantService)
	services.accessService = service.NewAccessService(services.appService, services.grantService)

	return services, nil
}
