package gemini

import (
	"context"
	"log/slog"

	"github.com/poiesic/leadhunt/ai"
)

// Provider implements ai.AIProvider on a single shared Gemini client.
type Provider struct {
	query  *Completer
	rank   *Completer
	logger *slog.Logger
}

// NewProvider creates a Gemini backed provider. The config must select the
// gemini backend and carry an API key.
func NewProvider(ctx context.Context, config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	client, err := newClient(ctx, config)
	if err != nil {
		return nil, err
	}
	return &Provider{
		query:  newCompleter(client, config, config.QueryModel, config.QueryTemperature),
		rank:   newCompleter(client, config, config.RankModel, config.RankTemperature),
		logger: slog.Default().With("component", "gemini-provider"),
	}, nil
}

func (p *Provider) QueryCompleter() ai.Completer { return p.query }

func (p *Provider) RankCompleter() ai.Completer { return p.rank }

func (p *Provider) Close() error {
	p.logger.Debug("closing Gemini provider")
	return nil
}
