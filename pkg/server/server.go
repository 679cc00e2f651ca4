// Package server contains the full set of handler functions and routes
// supported by the http api.
package server

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kube-credential/credential-service/config"
	"github.com/kube-credential/credential-service/internal/util"
	"github.com/kube-credential/credential-service/internal/worker"
	"github.com/kube-credential/credential-service/pkg/server/framework"
	"github.com/kube-credential/credential-service/pkg/server/middleware"
	"github.com/kube-credential/credential-service/pkg/server/router"
	"github.com/kube-credential/credential-service/pkg/service"
	svcframework "github.com/kube-credential/credential-service/pkg/service/framework"
)

const (
	HealthPrefix    = "/health"
	ReadinessPrefix = "/readiness"
	WorkerPrefix    = "/worker"

	V1Prefix          = "/v1"
	CredentialsPrefix = "/credentials"
	VerifyPrefix      = "/verify"
	HistoryPrefix     = "/history"

	IssuanceServiceName     = "credential-issuance"
	VerificationServiceName = "credential-verification"
)

// CredentialServer exposes all dependencies needed to run a http server and
// the services it fronts.
type CredentialServer struct {
	*config.ServerConfig
	*framework.Server

	services []svcframework.Service
}

// NewIssuanceServer instantiates the issuance side services and registers
// their HTTP bindings.
func NewIssuanceServer(shutdown chan os.Signal, cfg config.ServiceConfig) (*CredentialServer, error) {
	engine := setUpEngine(cfg.Server, shutdown)
	identity := worker.NewIdentity(worker.RoleIssuer)

	svc, err := service.InstantiateIssuanceService(cfg.Services, identity)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "unable to instantiate issuance service")
	}

	engine.GET(HealthPrefix, router.Health(IssuanceServiceName, identity))
	engine.GET(ReadinessPrefix, router.Readiness(svc.GetServices()))
	engine.GET(WorkerPrefix, router.Worker(identity))

	v1 := engine.Group(V1Prefix)
	if err = CredentialAPI(v1, svc.Credential); err != nil {
		return nil, util.LoggingErrorMsg(err, "unable to instantiate credential API")
	}

	return &CredentialServer{
		ServerConfig: &cfg.Server,
		Server:       framework.NewServer(cfg.Server, engine, shutdown),
		services:     svc.GetServices(),
	}, nil
}

// NewVerificationServer instantiates the verification side services and
// registers their HTTP bindings.
func NewVerificationServer(shutdown chan os.Signal, cfg config.ServiceConfig) (*CredentialServer, error) {
	engine := setUpEngine(cfg.Server, shutdown)
	identity := worker.NewIdentity(worker.RoleVerifier)

	svc, err := service.InstantiateVerificationService(cfg.Services, identity)
	if err != nil {
		return nil, util.LoggingErrorMsg(err, "unable to instantiate verification service")
	}

	engine.GET(HealthPrefix, router.Health(VerificationServiceName, identity))
	engine.GET(ReadinessPrefix, router.Readiness(svc.GetServices()))
	engine.GET(WorkerPrefix, router.Worker(identity))

	v1 := engine.Group(V1Prefix)
	if err = VerificationAPI(v1, svc.Verification); err != nil {
		return nil, util.LoggingErrorMsg(err, "unable to instantiate verification API")
	}

	return &CredentialServer{
		ServerConfig: &cfg.Server,
		Server:       framework.NewServer(cfg.Server, engine, shutdown),
		services:     svc.GetServices(),
	}, nil
}

// setUpEngine creates the gin engine and sets up the middleware based on config
func setUpEngine(cfg config.ServerConfig, shutdown chan os.Signal) *gin.Engine {
	middlewares := gin.HandlersChain{
		gin.Recovery(),
		middleware.Errors(shutdown),
		middleware.Logger(logrus.StandardLogger()),
		middleware.Metrics(),
	}
	if cfg.JagerEnabled {
		middlewares = append(middlewares, middleware.Tracer(config.ServiceName))
	}
	if cfg.EnableAllowAllCORS {
		middlewares = append(middlewares, middleware.CORS())
	}

	engine := gin.New()
	engine.Use(middlewares...)

	switch cfg.Environment {
	case config.EnvironmentDev:
		gin.SetMode(gin.DebugMode)
	case config.EnvironmentTest:
		gin.SetMode(gin.TestMode)
	case config.EnvironmentProd:
		gin.SetMode(gin.ReleaseMode)
	}
	return engine
}

// CredentialAPI registers all HTTP routes for the credential issuance service.
func CredentialAPI(rg *gin.RouterGroup, service svcframework.Service) error {
	credRouter, err := router.NewCredentialRouter(service)
	if err != nil {
		return util.LoggingErrorMsg(err, "creating credential router")
	}

	credAPI := rg.Group(CredentialsPrefix)
	credAPI.POST("", credRouter.IssueCredential)
	credAPI.GET("", credRouter.ListCredentials)
	credAPI.GET("/:id", credRouter.GetCredential)
	return nil
}

// VerificationAPI registers all HTTP routes for the verification service.
func VerificationAPI(rg *gin.RouterGroup, service svcframework.Service) error {
	verificationRouter, err := router.NewVerificationRouter(service)
	if err != nil {
		return util.LoggingErrorMsg(err, "creating verification router")
	}

	rg.POST(VerifyPrefix, verificationRouter.VerifyCredential)
	rg.GET(HistoryPrefix, verificationRouter.GetHistory)
	return nil
}
