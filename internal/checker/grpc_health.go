package checker

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"SiteWatchPlatform/internal/domain"
	"SiteWatchPlatform/pkg/logger"
	"SiteWatchPlatform/pkg/validation"
)

// GRPCHealthCheck проверяет gRPC endpoint через стандартный health protocol
type GRPCHealthCheck struct {
	dialTimeout time.Duration
	logger      logger.Logger
	validator   *validation.Validator
}

// NewGRPCHealthCheck создает новую gRPC health проверку
func NewGRPCHealthCheck(dialTimeout time.Duration, log logger.Logger) *GRPCHealthCheck {
	return &GRPCHealthCheck{
		dialTimeout: dialTimeout,
		logger:      log,
		validator:   validation.NewValidator(),
	}
}

// Name возвращает имя проверки
func (c *GRPCHealthCheck) Name() string {
	return "grpc_health"
}

// Description возвращает описание проверки
func (c *GRPCHealthCheck) Description() string {
	return "Checks a gRPC endpoint via the grpc.health.v1 protocol"
}

// Category возвращает категорию проверки
func (c *GRPCHealthCheck) Category() domain.CheckCategory {
	return domain.CheckCategoryAvailability
}

// Run выполняет gRPC health проверку цели
func (c *GRPCHealthCheck) Run(ctx context.Context, target *domain.Target) (*domain.CheckOutcome, error) {
	cfg, ok := target.CheckConfig(c.Name())
	if !ok {
		return nil, fmt.Errorf("check is not configured for target %s", target.ID)
	}

	address, ok := cfg.StringParam("address")
	if !ok {
		return nil, fmt.Errorf("missing required param 'address' for target %s", target.ID)
	}

	if err := c.validator.ValidateHostPort(address); err != nil {
		return nil, fmt.Errorf("invalid grpc address: %w", err)
	}

	service, _ := cfg.StringParam("service")

	dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()

	startTime := time.Now()
	conn, err := grpc.DialContext(dialCtx, address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	defer conn.Close()

	client := grpc_health_v1.NewHealthClient(conn)
	resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	duration := time.Since(startTime)

	if err != nil {
		return nil, fmt.Errorf("health check call failed: %w", err)
	}

	outcome := domain.NewCheckOutcome(c.Name(), domain.CheckStatusPass, fmt.Sprintf("service is %s", resp.Status.String()))
	outcome.DurationMs = duration.Milliseconds()
	outcome.Data["address"] = address
	outcome.Data["service"] = service
	outcome.Data["serving_status"] = resp.Status.String()

	if resp.Status != grpc_health_v1.HealthCheckResponse_SERVING {
		outcome.Status = domain.CheckStatusFail
		outcome.Message = fmt.Sprintf("service reported status %s", resp.Status.String())
		c.logger.Debug("gRPC health check reported non-serving status",
			logger.String("target_id", target.ID),
			logger.String("address", address),
			logger.String("status", resp.Status.String()),
		)
	}

	return outcome, nil
}
