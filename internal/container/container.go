package container

import (
	"context"
	"fmt"

	"github.com/dim272/bwn-parser/internal/client"
	"github.com/dim272/bwn-parser/internal/config"
	"github.com/dim272/bwn-parser/internal/proxy"
	"github.com/dim272/bwn-parser/internal/repository"
	"github.com/dim272/bwn-parser/internal/service"

	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config     *config.Config
	Client     client.BethowenClient
	Repository repository.ResultRepository

	Service *service.Service
}

// New creates a new container with all dependencies initialized.
// Configuration problems (empty proxy list, malformed categories) surface
// here, before any network activity.
func New(cfg *config.Config) (*Container, error) {
	container := &Container{
		Config: cfg,
	}

	targetCategories, err := config.NormalizeCategories(cfg.Parser.Categories)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare categories: %w", err)
	}

	proxySupplier, err := proxy.NewSupplierFromFile(cfg.Bethowen.ProxiesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize proxy supplier: %w", err)
	}

	bethowenClient := client.NewBethowenClient(cfg.Bethowen, proxySupplier)
	container.Client = bethowenClient

	resultRepo := repository.NewResultRepository(cfg.Parser.OutputDir)
	container.Repository = resultRepo

	container.Service = service.NewService(
		bethowenClient,
		resultRepo,
		cfg.Parser,
		targetCategories,
	)

	log.Info("✅ Container initialized")

	return container, nil
}

// Run executes one full crawl.
func (c *Container) Run(ctx context.Context) error {
	return c.Service.Run(ctx)
}
