package binding

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"verichain/internal/agent"
	"verichain/internal/ledger/mocks"
	"verichain/pkg/domain"
	dErrors "verichain/pkg/domain-errors"
)

const (
	signerHex   = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	registryHex = "0xcccccccccccccccccccccccccccccccccccccccc"
)

type BinderSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	factory *mocks.MockFactory
	binder  *Binder
	conn    *agent.ConnectionInfo
}

func TestBinderSuite(t *testing.T) {
	suite.Run(t, new(BinderSuite))
}

func (s *BinderSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.factory = mocks.NewMockFactory(s.ctrl)
	s.binder = New(s.factory)
	addr, err := domain.ParseAddress(signerHex)
	s.Require().NoError(err)
	s.conn = &agent.ConnectionInfo{Address: addr, NetworkName: "mainnet", ChainID: 1}
}

func (s *BinderSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *BinderSuite) TestBindRequiresConnection() {
	_, err := s.binder.Bind(context.Background(), nil, registryHex)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotConnected))
}

func (s *BinderSuite) TestBindRejectsMalformedAddress() {
	for _, addr := range []string{"", "0x123", "not-an-address", "0x0000000000000000000000000000000000000000"} {
		s.Run(addr, func() {
			_, err := s.binder.Bind(context.Background(), s.conn, addr)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidAddress))
		})
	}
}

func (s *BinderSuite) TestBindOpensRegistryWithoutCalls() {
	registry := mocks.NewMockRegistry(s.ctrl)
	s.factory.EXPECT().
		Open(common.HexToAddress(registryHex), common.HexToAddress(signerHex)).
		Return(registry, nil).
		Times(2)

	first, err := s.binder.Bind(context.Background(), s.conn, registryHex)
	s.Require().NoError(err)
	s.Same(registry, first.Registry())
	s.Equal(common.HexToAddress(registryHex), first.RegistryAddress().Common())
	s.Equal(s.conn.Address, first.Signer())

	second, err := s.binder.Bind(context.Background(), s.conn, registryHex)
	s.Require().NoError(err)
	s.NotEqual(first.ID(), second.ID())
}

func (s *BinderSuite) TestBindOpenFailure() {
	s.factory.EXPECT().Open(gomock.Any(), gomock.Any()).Return(nil, errors.New("dial failed"))

	_, err := s.binder.Bind(context.Background(), s.conn, registryHex)
	s.True(dErrors.HasCode(err, dErrors.CodeAgentError))
}
