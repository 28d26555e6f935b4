package dig_container

import (
	"context"
	"log"
	"os"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoportal "github.com/trezcool/masomo-portal/apps/portal/echo"
	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/session"
	"github.com/trezcool/masomo-portal/core/user"
	logsvc "github.com/trezcool/masomo-portal/services/logger"
	"github.com/trezcool/masomo-portal/services/metrics"
	"github.com/trezcool/masomo-portal/services/schoolapi"
	"github.com/trezcool/masomo-portal/storage/keystore"
)

const keystoreOpenTimeout = 30 * time.Second

type NewConfigFunc func() *core.Config

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stderr, "PORTAL : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newKeystore(conf *core.Config) (*keystore.Keystore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), keystoreOpenTimeout)
	defer cancel()
	ks, err := keystore.Open(ctx, conf)
	return ks, errors.Wrapf(err, "opening %q keystore", conf.Storage.Driver)
}

func newSchoolAPI(conf *core.Config, logger core.Logger, mtr *metrics.Metrics) (*schoolapi.Client, session.Authenticator) {
	client := schoolapi.NewClient(conf, logger, schoolapi.WithObserver(mtr))
	return client, client
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// newStore builds the one session store of the process.
func newStore(
	api session.Authenticator,
	ks *keystore.Keystore,
	validate *validator.Validate,
	logger core.Logger,
	mtr *metrics.Metrics,
) *session.Store {
	return session.NewStore(api, ks.Repository, validate, logger, session.WithObserver(mtr))
}

type serverParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Store      *session.Store
	API        *schoolapi.Client
	Metrics    *metrics.Metrics
	Validate   *validator.Validate
	Translator ut.Translator
}

func newServer(p serverParams) *echoportal.Server {
	return echoportal.NewServer(echoportal.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Store:      p.Store,
		API:        p.API,
		Metrics:    p.Metrics,
		Validate:   p.Validate,
		Translator: p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New(newConfig NewConfigFunc) *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(metrics.New))
	must(c.Provide(newKeystore))
	must(c.Provide(newSchoolAPI))
	must(c.Provide(newValidator))
	must(c.Provide(newStore))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
