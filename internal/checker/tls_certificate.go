package checker

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"time"

	"SiteWatchPlatform/internal/domain"
	"SiteWatchPlatform/pkg/logger"
)

// TLSCertificateCheck проверяет срок действия TLS сертификата цели
type TLSCertificateCheck struct {
	dialTimeout time.Duration
	warnBefore  time.Duration
	logger      logger.Logger
}

// NewTLSCertificateCheck создает новую проверку TLS сертификата
func NewTLSCertificateCheck(dialTimeout, warnBefore time.Duration, log logger.Logger) *TLSCertificateCheck {
	return &TLSCertificateCheck{
		dialTimeout: dialTimeout,
		warnBefore:  warnBefore,
		logger:      log,
	}
}

// Name возвращает имя проверки
func (c *TLSCertificateCheck) Name() string {
	return "tls_certificate"
}

// Description возвращает описание проверки
func (c *TLSCertificateCheck) Description() string {
	return "Checks that the target TLS certificate is valid and not close to expiry"
}

// Category возвращает категорию проверки
func (c *TLSCertificateCheck) Category() domain.CheckCategory {
	return domain.CheckCategorySecurity
}

// Run выполняет проверку сертификата цели
func (c *TLSCertificateCheck) Run(ctx context.Context, target *domain.Target) (*domain.CheckOutcome, error) {
	parsed, err := url.Parse(target.URL)
	if err != nil || parsed.Hostname() == "" {
		return nil, fmt.Errorf("invalid target URL: %s", target.URL)
	}

	host := parsed.Hostname()
	port := parsed.Port()
	if port == "" {
		port = "443"
	}
	address := net.JoinHostPort(host, port)

	tlsConfig := &tls.Config{ServerName: host}
	if cfg, ok := target.CheckConfig(c.Name()); ok {
		if skip, found := cfg.BoolParam("insecure_skip_verify"); found && skip {
			tlsConfig.InsecureSkipVerify = true
		}
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: c.dialTimeout},
		Config:    tlsConfig,
	}

	startTime := time.Now()
	rawConn, err := dialer.DialContext(ctx, "tcp", address)
	duration := time.Since(startTime)

	if err != nil {
		return nil, fmt.Errorf("tls handshake failed: %w", err)
	}
	defer rawConn.Close()

	conn, ok := rawConn.(*tls.Conn)
	if !ok {
		return nil, fmt.Errorf("unexpected connection type for %s", address)
	}

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil, fmt.Errorf("no peer certificates presented by %s", address)
	}

	cert := certs[0]
	now := time.Now()
	daysLeft := int(cert.NotAfter.Sub(now).Hours() / 24)

	outcome := domain.NewCheckOutcome(c.Name(), domain.CheckStatusPass, fmt.Sprintf("certificate valid for %d days", daysLeft))
	outcome.DurationMs = duration.Milliseconds()
	outcome.Data["not_after"] = cert.NotAfter.UTC().Format(time.RFC3339)
	outcome.Data["issuer"] = cert.Issuer.CommonName
	outcome.Data["subject"] = cert.Subject.CommonName
	outcome.Data["days_left"] = daysLeft

	switch {
	case now.After(cert.NotAfter):
		outcome.Status = domain.CheckStatusFail
		outcome.Message = fmt.Sprintf("certificate expired at %s", cert.NotAfter.UTC().Format(time.RFC3339))
	case cert.NotAfter.Sub(now) <= c.warnBefore:
		outcome.Status = domain.CheckStatusWarning
		outcome.Message = fmt.Sprintf("certificate expires in %d days", daysLeft)
		c.logger.Debug("TLS certificate close to expiry",
			logger.String("target_id", target.ID),
			logger.String("host", host),
			logger.Int("days_left", daysLeft),
		)
	}

	return outcome, nil
}
