package main

import (
	"context"
	"errors"
	"os"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/labstack/echo/v4"
	adaptermiddleware "launch-workflow/internal/adapters/http/middleware"
	adapterlogger "launch-workflow/internal/adapters/logger"
	"launch-workflow/internal/application"
	"launch-workflow/internal/infrastructure/auth"
	"launch-workflow/internal/infrastructure/dynamodb"
	httpiface "launch-workflow/internal/interfaces/http"
)

type config struct {
	TableName      string
	Region         string
	UserPoolID     string
	AuthMode       adaptermiddleware.Mode
	CapabilityPath string
	Port           string
}

func loadConfig() (config, error) {
	authMode, err := adaptermiddleware.ParseAuthMode()
	if err != nil {
		return config{}, err
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	cfg := config{
		TableName:      os.Getenv("TABLE_NAME"),
		Region:         os.Getenv("AWS_REGION"),
		UserPoolID:     os.Getenv("COGNITO_USER_POOL_ID"),
		AuthMode:       authMode,
		CapabilityPath: os.Getenv("CAPABILITY_TABLE_PATH"),
		Port:           port,
	}
	if cfg.TableName == "" || cfg.Region == "" {
		return config{}, errors.New("missing required environment variables")
	}
	if cfg.AuthMode == adaptermiddleware.ModeCognito && cfg.UserPoolID == "" {
		return config{}, errors.New("COGNITO_USER_POOL_ID is required for cognito auth mode")
	}
	return cfg, nil
}

func capabilityTable(path string) (application.CapabilityTable, error) {
	if path == "" {
		return application.DefaultCapabilityTable(), nil
	}
	return application.LoadCapabilityTable(path)
}

func main() {
	logger := adapterlogger.New()

	cfg, err := loadConfig()
	if err != nil {
		logger.Error(context.Background(), "configuration error", "error", err)
		os.Exit(1)
	}
	xray.Configure(xray.Config{LogLevel: "error"})

	table, err := capabilityTable(cfg.CapabilityPath)
	if err != nil {
		logger.Error(context.Background(), "failed to load capability table", "error", err)
		os.Exit(1)
	}

	ddbClient, err := dynamodb.NewClient(context.Background(), cfg.Region, cfg.TableName)
	if err != nil {
		logger.Error(context.Background(), "failed to initialize dynamodb client", "error", err)
		os.Exit(1)
	}
	approvalRepo := dynamodb.NewApprovalRepository(ddbClient)
	auditRepo := dynamodb.NewAuditRepository(ddbClient)

	authorizer := application.NewRoleAuthorizer(table)
	gate := application.NewLaunchGate(authorizer)
	workflowSvc := application.NewWorkflowService(authorizer, gate, approvalRepo, auditRepo, logger)

	var cognitoHandler echo.MiddlewareFunc
	if cfg.AuthMode == adaptermiddleware.ModeCognito {
		cognitoHandler = auth.NewCognitoMiddleware(cfg.UserPoolID, cfg.Region).Handler
	}
	authMiddleware, err := adaptermiddleware.AuthMiddleware(cognitoHandler)
	if err != nil {
		logger.Error(context.Background(), "failed to initialize auth middleware", "error", err)
		os.Exit(1)
	}
	mw := httpiface.Middleware{
		Auth:          authMiddleware,
		XRay:          adaptermiddleware.XRayMiddleware("launch-workflow-http"),
		RequestLogger: adaptermiddleware.RequestLogger(logger),
	}

	e := httpiface.NewRouter(httpiface.NewApprovalsHandler(workflowSvc), mw)
	logger.Info(context.Background(), "starting http server", "port", cfg.Port)
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
