package sandbox

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingpulse/internal/clock"
	"github.com/smallbiznis/billingpulse/internal/provider/domain"
	"github.com/smallbiznis/billingpulse/pkg/db"
	"go.uber.org/zap"
)

const ProviderName = "sandbox"

// Factory opens the sandbox database on first use so that selecting the
// HTTP provider never touches a database.
type Factory struct {
	dbCfg db.Config
	seed  bool
	node  *snowflake.Node
	clock clock.Clock
	loc   *time.Location
	log   *zap.Logger

	once  sync.Once
	store *Store
	err   error
}

func NewFactory(dbCfg db.Config, seed bool, node *snowflake.Node, clk clock.Clock, loc *time.Location, log *zap.Logger) *Factory {
	return &Factory{
		dbCfg: dbCfg,
		seed:  seed,
		node:  node,
		clock: clk,
		loc:   loc,
		log:   log,
	}
}

func (f *Factory) Provider() string {
	return ProviderName
}

// NewClient ignores the HTTP client settings; the sandbox is configured by dbCfg.
func (f *Factory) NewClient(_ domain.ClientConfig) (domain.Client, error) {
	f.once.Do(func() {
		f.store, f.err = f.open(context.Background())
	})
	if f.err != nil {
		return nil, f.err
	}
	return f.store, nil
}

func (f *Factory) open(ctx context.Context) (*Store, error) {
	conn, err := db.Open(f.dbCfg, f.log)
	if err != nil {
		return nil, err
	}
	store := NewStore(conn, f.node, f.clock, f.loc, f.log)
	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}
	if f.seed {
		if err := store.Seed(ctx); err != nil {
			return nil, err
		}
	}
	return store, nil
}
