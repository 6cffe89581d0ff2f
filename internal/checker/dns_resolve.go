package checker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"SiteWatchPlatform/internal/domain"
	"SiteWatchPlatform/pkg/logger"
)

// DNSResolveCheck проверяет, что имя хоста цели разрешается в DNS
type DNSResolveCheck struct {
	resolver *net.Resolver
	logger   logger.Logger
}

// NewDNSResolveCheck создает новую проверку разрешения DNS
func NewDNSResolveCheck(log logger.Logger) *DNSResolveCheck {
	return &DNSResolveCheck{
		resolver: net.DefaultResolver,
		logger:   log,
	}
}

// Name возвращает имя проверки
func (c *DNSResolveCheck) Name() string {
	return "dns_resolve"
}

// Description возвращает описание проверки
func (c *DNSResolveCheck) Description() string {
	return "Checks that the target hostname resolves to at least one address"
}

// Category возвращает категорию проверки
func (c *DNSResolveCheck) Category() domain.CheckCategory {
	return domain.CheckCategoryAvailability
}

// Run выполняет разрешение имени хоста цели
func (c *DNSResolveCheck) Run(ctx context.Context, target *domain.Target) (*domain.CheckOutcome, error) {
	parsed, err := url.Parse(target.URL)
	if err != nil || parsed.Hostname() == "" {
		return nil, fmt.Errorf("invalid target URL: %s", target.URL)
	}

	host := parsed.Hostname()

	startTime := time.Now()
	addrs, err := c.resolver.LookupHost(ctx, host)
	duration := time.Since(startTime)

	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			outcome := domain.NewCheckOutcome(c.Name(), domain.CheckStatusFail, fmt.Sprintf("host %s does not exist", host))
			outcome.DurationMs = duration.Milliseconds()
			outcome.Data["host"] = host
			return outcome, nil
		}
		return nil, fmt.Errorf("dns lookup failed: %w", err)
	}

	outcome := domain.NewCheckOutcome(c.Name(), domain.CheckStatusPass, fmt.Sprintf("resolved %d addresses", len(addrs)))
	outcome.DurationMs = duration.Milliseconds()
	outcome.Data["host"] = host
	outcome.Data["addresses"] = addrs

	c.logger.Debug("DNS resolution completed",
		logger.String("target_id", target.ID),
		logger.String("host", host),
		logger.Int("addresses", len(addrs)),
	)

	return outcome, nil
}
