package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/demolens/tickstate/internal/config"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
)

// PerformanceBucket receives ingest rate points from the monitor.
const PerformanceBucket = "ingest_performance"

const (
	retention    = 90 * 24 * time.Hour
	batchSize    = 2500
	flushEveryMs = 1000
)

var errNotConnected = errors.New("influx not connected and no backup file open")

// Conn writes points to InfluxDB. While the server is unreachable the
// points are appended to a gzip line protocol file instead, which can be
// replayed with the influx CLI later.
type Conn struct {
	log        zerolog.Logger
	backupPath string

	client  influxdb2.Client
	writers map[string]influxdb2_api.WriteAPI

	mu     sync.Mutex
	file   *os.File
	backup *gzip.Writer
}

func NewConn(log zerolog.Logger, backupPath string) *Conn {
	return &Conn{
		log:        log,
		backupPath: backupPath,
		writers:    make(map[string]influxdb2_api.WriteAPI),
	}
}

// ServerURL builds the base URL of the influx server.
func ServerURL(cfg config.InfluxConfig) string {
	return fmt.Sprintf("%s://%s:%s", cfg.Protocol, cfg.Host, cfg.Port)
}

// Online reports whether points go to the server.
func (c *Conn) Online() bool {
	return len(c.writers) > 0
}

// Connect pings the server and makes sure the org and both buckets exist.
// An unreachable server is not an error; points go to the backup file.
func (c *Conn) Connect(ctx context.Context, cfg config.InfluxConfig) error {
	if !cfg.Enabled {
		return errors.New("influx.enabled is false")
	}

	c.client = influxdb2.NewClientWithOptions(ServerURL(cfg), cfg.Token,
		influxdb2.DefaultOptions().SetBatchSize(batchSize).SetFlushInterval(flushEveryMs))

	if up, err := c.client.Ping(ctx); err != nil || !up {
		c.log.Warn().Err(err).Str("backupPath", c.backupPath).Msg("InfluxDB unreachable, writing to backup file")
		return c.openBackup()
	}

	buckets := []string{cfg.Bucket, PerformanceBucket}
	if err := c.ensureBuckets(ctx, cfg.Org, buckets); err != nil {
		return err
	}
	for _, bucket := range buckets {
		c.writers[bucket] = c.client.WriteAPI(cfg.Org, bucket)
		go c.logErrors(bucket, c.writers[bucket].Errors())
	}
	c.log.Info().Str("url", ServerURL(cfg)).Strs("buckets", buckets).Msg("InfluxDB client initialized")
	return nil
}

func (c *Conn) openBackup() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backup != nil {
		return nil
	}
	f, err := os.OpenFile(c.backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	c.file = f
	c.backup = gzip.NewWriter(f)
	return nil
}

func (c *Conn) ensureBuckets(ctx context.Context, orgName string, buckets []string) error {
	orgs := c.client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, orgName)
	if err != nil {
		c.log.Info().Str("org", orgName).Msg("Organization not found, creating")
		if org, err = orgs.CreateOrganizationWithName(ctx, orgName); err != nil {
			return fmt.Errorf("creating organization %q: %w", orgName, err)
		}
	}

	rule := domain.RetentionRuleTypeExpire
	for _, bucket := range buckets {
		if _, err := c.client.BucketsAPI().FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		c.log.Info().Str("bucket", bucket).Msg("Bucket not found, creating")
		_, err := c.client.BucketsAPI().CreateBucketWithName(ctx, org, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: int64(retention / time.Second),
		})
		if err != nil {
			return fmt.Errorf("creating bucket %q: %w", bucket, err)
		}
	}
	return nil
}

func (c *Conn) logErrors(bucket string, errs <-chan error) {
	for err := range errs {
		c.log.Error().Err(err).Str("bucket", bucket).Msg("Error sending data to InfluxDB")
	}
}

// WritePoint queues p for bucket, or appends it to the backup file.
func (c *Conn) WritePoint(bucket string, p *influxdb2_write.Point) error {
	if c.Online() {
		w, ok := c.writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket %q not registered", bucket)
		}
		w.WritePoint(p)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backup == nil {
		return errNotConnected
	}
	if _, err := c.backup.Write([]byte(influxdb2_write.PointToLineProtocol(p, time.Nanosecond))); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Close flushes pending points and releases the client and the backup file.
func (c *Conn) Close() error {
	for _, w := range c.writers {
		w.Flush()
	}
	if c.client != nil {
		c.client.Close()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	if c.backup != nil {
		errs = append(errs, c.backup.Close())
		c.backup = nil
	}
	if c.file != nil {
		errs = append(errs, c.file.Close())
		c.file = nil
	}
	return errors.Join(errs...)
}
