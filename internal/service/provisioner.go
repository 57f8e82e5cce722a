package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/logging"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/metrics"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/model"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/store"
)

const tracerName = "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/service"

// DigitSource produces a candidate short code of the given width.
type DigitSource func(width int) (string, error)

// ShortCodePolicy bounds the short code search.  Attempts probes are made
// at each width from Width up to MaxWidth.
type ShortCodePolicy struct {
	Width    int
	Attempts int
	MaxWidth int
}

// Profile is what the identity boundary knows about a principal.
type Profile struct {
	PrincipalID string
	DisplayName string
	Email       string
	PhotoURL    string
}

// Provisioner creates the account of a principal on first sight.
type Provisioner struct {
	accounts store.AccountStore
	policy   ShortCodePolicy
	digits   DigitSource
	now      func() time.Time
	log      *logging.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// NewProvisioner builds a Provisioner over accounts.
func NewProvisioner(accounts store.AccountStore, policy ShortCodePolicy, log *logging.Logger, m *metrics.Metrics) *Provisioner {
	if policy.Width < 1 {
		policy.Width = 3
	}
	if policy.Attempts < 1 {
		policy.Attempts = 10
	}
	if policy.MaxWidth < policy.Width {
		policy.MaxWidth = policy.Width
	}
	if log == nil {
		log = logging.NewNoOpLogger()
	}
	return &Provisioner{
		accounts: accounts,
		policy:   policy,
		digits:   RandomDigits,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log.Named("provisioner"),
		metrics:  m,
		tracer:   otel.Tracer(tracerName),
	}
}

// WithDigitSource replaces the short code generator.
func (p *Provisioner) WithDigitSource(d DigitSource) *Provisioner {
	p.digits = d
	return p
}

// EnsureAccount returns the account of the principal, creating it with an
// empty wallet and a fresh short code when none exists.  Concurrent first
// calls for the same principal converge on a single account because the
// store insert is create-if-absent.
func (p *Provisioner) EnsureAccount(ctx context.Context, prof Profile) (model.Account, error) {
	ctx, span := p.tracer.Start(ctx, "Provisioner.EnsureAccount")
	defer span.End()
	span.SetAttributes(attribute.String("principal.id", prof.PrincipalID))

	acct, err := p.ensure(ctx, prof)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return acct, err
}

func (p *Provisioner) ensure(ctx context.Context, prof Profile) (model.Account, error) {
	if strings.TrimSpace(prof.PrincipalID) == "" {
		return model.Account{}, ErrInvalidPrincipal
	}
	acct, err := p.accounts.FindAccount(ctx, prof.PrincipalID)
	if err == nil {
		p.metrics.AccountExisting()
		return acct, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return model.Account{}, infra("find account", err)
	}

	probes := 0
	for width := p.policy.Width; width <= p.policy.MaxWidth; width++ {
		for i := 0; i < p.policy.Attempts; i++ {
			if err := ctx.Err(); err != nil {
				return model.Account{}, err
			}
			probes++
			code, err := p.digits(width)
			if err != nil {
				return model.Account{}, infra("generate short code", err)
			}
			taken, err := p.accounts.ShortCodeTaken(ctx, code)
			if err != nil {
				return model.Account{}, infra("probe short code", err)
			}
			if taken {
				continue
			}

			acct = model.Account{
				ID:          prof.PrincipalID,
				DisplayName: prof.DisplayName,
				Email:       prof.Email,
				PhotoURL:    prof.PhotoURL,
				ShortCode:   code,
				Wallet:      model.Wallet{Balance: decimal.Zero},
				CreatedAt:   p.now(),
			}
			err = p.accounts.CreateAccount(ctx, acct)
			switch {
			case err == nil:
				p.metrics.AccountCreated(probes)
				p.log.Info("account created",
					zap.String("account_id", acct.ID),
					zap.String("short_code", code),
					zap.Int("probes", probes))
				created, ferr := p.accounts.FindAccount(ctx, acct.ID)
				if ferr != nil {
					return model.Account{}, infra("find account", ferr)
				}
				return created, nil
			case errors.Is(err, store.ErrAccountExists):
				// Lost a first-login race; the winner's record stands.
				p.metrics.AccountExisting()
				winner, ferr := p.accounts.FindAccount(ctx, prof.PrincipalID)
				if ferr != nil {
					return model.Account{}, infra("find account", ferr)
				}
				return winner, nil
			case errors.Is(err, store.ErrShortCodeTaken):
				continue
			default:
				return model.Account{}, infra("create account", err)
			}
		}
		if width < p.policy.MaxWidth {
			p.log.Warn("short code space crowded, widening",
				zap.Int("width", width+1), zap.Int("probes", probes))
		}
	}
	p.log.Error("short code space exhausted",
		zap.String("account_id", prof.PrincipalID), zap.Int("probes", probes))
	return model.Account{}, ErrShortCodeExhausted
}
