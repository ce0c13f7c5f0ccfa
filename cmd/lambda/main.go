package main

import (
	"context"
	"errors"
	"os"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/labstack/echo/v4"
	adaptermiddleware "launch-workflow/internal/adapters/http/middleware"
	adapterlogger "launch-workflow/internal/adapters/logger"
	"launch-workflow/internal/application"
	"launch-workflow/internal/infrastructure/auth"
	"launch-workflow/internal/infrastructure/dynamodb"
	httpiface "launch-workflow/internal/interfaces/http"
	platformlambda "launch-workflow/internal/platform/lambda"
)

// Lambda entrypoint: same wiring as cmd/bootstrap, fronted by API Gateway
// instead of a listening socket. X-Ray segments come from the Lambda runtime.
func main() {
	logger := adapterlogger.New()

	tableName := os.Getenv("TABLE_NAME")
	region := os.Getenv("AWS_REGION")
	userPoolID := os.Getenv("COGNITO_USER_POOL_ID")
	if tableName == "" || region == "" {
		logger.Error(context.Background(), "configuration error", "error", errors.New("missing required environment variables"))
		os.Exit(1)
	}
	authMode, err := adaptermiddleware.ParseAuthMode()
	if err != nil {
		logger.Error(context.Background(), "configuration error", "error", err)
		os.Exit(1)
	}

	table := application.DefaultCapabilityTable()
	if path := os.Getenv("CAPABILITY_TABLE_PATH"); path != "" {
		table, err = application.LoadCapabilityTable(path)
		if err != nil {
			logger.Error(context.Background(), "failed to load capability table", "error", err)
			os.Exit(1)
		}
	}

	ddbClient, err := dynamodb.NewClient(context.Background(), region, tableName)
	if err != nil {
		logger.Error(context.Background(), "failed to initialize dynamodb client", "error", err)
		os.Exit(1)
	}
	authorizer := application.NewRoleAuthorizer(table)
	gate := application.NewLaunchGate(authorizer)
	workflowSvc := application.NewWorkflowService(authorizer, gate,
		dynamodb.NewApprovalRepository(ddbClient), dynamodb.NewAuditRepository(ddbClient), logger)

	var cognitoHandler echo.MiddlewareFunc
	if authMode == adaptermiddleware.ModeCognito {
		if userPoolID == "" {
			logger.Error(context.Background(), "configuration error", "error", errors.New("COGNITO_USER_POOL_ID is required for cognito auth mode"))
			os.Exit(1)
		}
		cognitoHandler = auth.NewCognitoMiddleware(userPoolID, region).Handler
	}
	authMiddleware, err := adaptermiddleware.AuthMiddleware(cognitoHandler)
	if err != nil {
		logger.Error(context.Background(), "failed to initialize auth middleware", "error", err)
		os.Exit(1)
	}
	mw := httpiface.Middleware{
		Auth:          authMiddleware,
		RequestLogger: adaptermiddleware.RequestLogger(logger),
	}

	e := httpiface.NewRouter(httpiface.NewApprovalsHandler(workflowSvc), mw)
	awslambda.Start(platformlambda.NewLambdaHandler(e))
}
