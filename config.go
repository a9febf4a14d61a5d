package rangekv

import (
	"context"
	"fmt"
	"time"

	etcd "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"github.com/tarantool/go-rangekv/region"
	regionetcd "github.com/tarantool/go-rangekv/region/etcd"
	tnttransport "github.com/tarantool/go-rangekv/transport/tarantool"
)

// DefaultDirectoryEndpoint is the placement service endpoint used when the
// configuration names none.
const DefaultDirectoryEndpoint = "127.0.0.1:2379"

// defaultDialTimeout bounds the initial connection to the placement service.
const defaultDialTimeout = 5 * time.Second

// Config describes how to reach a cluster: the etcd endpoints of the
// placement service and the credentials for the Tarantool stores it routes
// to.
type Config struct {
	// DirectoryEndpoints are the etcd endpoints of the placement service.
	// Defaults to DefaultDirectoryEndpoint.
	DirectoryEndpoints []string
	// DirectoryPrefix is the meta prefix region records live under.
	// Defaults to the region/etcd package default.
	DirectoryPrefix string
	// DialTimeout bounds the initial placement service connection.
	DialTimeout time.Duration
	// User and Password authenticate against the stores.
	User     string
	Password string
}

// Connect bootstraps a Client against a live cluster: an etcd-backed region
// directory wrapped in a cache, and a Tarantool store transport with lazily
// dialed connections. Close the client to release them.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	endpoints := cfg.DirectoryEndpoints
	if len(endpoints) == 0 {
		endpoints = []string{DefaultDirectoryEndpoint}
	}

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}

	etcdClient, err := etcd.New(etcd.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
		Context:     ctx,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to placement service: %w", err)
	}

	var directoryOpts []regionetcd.Option
	if cfg.DirectoryPrefix != "" {
		directoryOpts = append(directoryOpts, regionetcd.WithPrefix(cfg.DirectoryPrefix))
	}

	directory := region.NewCache(regionetcd.New(etcdClient, directoryOpts...))
	stores := tnttransport.New(tnttransport.NetDialer(cfg.User, cfg.Password))

	client := New(directory, stores, opts...)
	client.closers = append(client.closers, stores, etcdClient)

	client.logger.Debug("connected to cluster",
		zap.Strings("directory_endpoints", endpoints))

	return client, nil
}
