// Package mcp exposes the world-building surface over the Model
// Context Protocol, so an assistant can drive the Q&A cycle and query
// the accumulated truth.
package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"talecraft/internal/config"
	"talecraft/internal/oracle"
	"talecraft/internal/store"
	"talecraft/internal/worldbuild"
)

type Server struct {
	db   store.Store
	orch *worldbuild.Orchestrator
	log  *zap.Logger
	mcp  *sdk.Server
}

func NewServer(db store.Store, ora oracle.Oracle, templates *config.Templates, log *zap.Logger, version string) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		db:   db,
		orch: worldbuild.New(ora, templates, log),
		log:  log,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "talecraft",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
