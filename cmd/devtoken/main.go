// Command devtoken mints HS256 identity tokens accepted by the server when
// IDENTITY_PROVIDER=jwt.  It is meant for local runs and smoke tests.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/identity"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/logging"
)

func main() {
	var (
		sub    = flag.String("sub", "", "principal id (required)")
		name   = flag.String("name", "", "display name")
		email  = flag.String("email", "", "email address")
		photo  = flag.String("photo", "", "photo url")
		secret = flag.String("secret", os.Getenv("JWT_SECRET"), "signing secret, defaults to $JWT_SECRET")
		issuer = flag.String("issuer", os.Getenv("JWT_ISSUER"), "iss claim")
		ttl    = flag.Duration("ttl", 24*time.Hour, "token lifetime")
	)
	flag.Parse()

	log, err := logging.NewLogger(logging.DevelopmentConfig())
	if err != nil {
		log = logging.NewNoOpLogger()
	}
	if *sub == "" || *secret == "" {
		flag.Usage()
		os.Exit(2)
	}

	tok, exp, err := identity.IssueToken(*secret, *issuer, identity.Principal{
		ID:          *sub,
		DisplayName: *name,
		Email:       *email,
		PhotoURL:    *photo,
	}, *ttl)
	if err != nil {
		log.Fatal("issue token", zap.Error(err))
	}
	log.Info("token issued", zap.String("sub", *sub), zap.Time("expires_at", exp))
	fmt.Println(tok)
}
