package pago

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
	dErrors "github.com/dewauriarte/SIGCERH-sub005/pkg/domain-errors"
)

type SecretsSuite struct {
	suite.Suite
}

func TestSecretsSuite(t *testing.T) {
	suite.Run(t, new(SecretsSuite))
}

func (s *SecretsSuite) TestTokenRoundTrip() {
	token, err := GenerateGatewayToken()
	s.Require().NoError(err)
	s.NotEmpty(token)

	hash, err := HashGatewayToken(token)
	s.Require().NoError(err)
	s.NotEqual(token, hash)

	s.NoError(VerifyGatewayToken(token, hash))
}

func (s *SecretsSuite) TestWrongTokenRejected() {
	hash, err := HashGatewayToken("token-correcto")
	s.Require().NoError(err)

	err = VerifyGatewayToken("token-equivocado", hash)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *SecretsSuite) TestEmptyTokenRejected() {
	_, err := HashGatewayToken("")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *SecretsSuite) TestMemoryDeduper() {
	d := NewMemoryDeduper()
	id := domain.NewWebhookID()

	seen, err := d.Seen(context.Background(), id)
	s.Require().NoError(err)
	s.False(seen)

	seen, err = d.Seen(context.Background(), id)
	s.Require().NoError(err)
	s.True(seen)

	seen, err = d.Seen(context.Background(), domain.NewWebhookID())
	s.Require().NoError(err)
	s.False(seen)
}
