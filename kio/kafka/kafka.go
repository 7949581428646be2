package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/birdayz/tilestreams/kdag"
	"github.com/birdayz/tilestreams/kserde"
)

// Client moves stream host data through Kafka topics. Every record carries
// one tile: the key is the tile index, the value the encoded tile.
type Client struct {
	log     *slog.Logger
	brokers []string
	opts    []kgo.Opt

	client *kgo.Client
	admin  *kadm.Client
}

// NewClient creates a producing client for brokers. opts are applied to
// every client created, including the consumers used by Load.
func NewClient(log *slog.Logger, brokers []string, opts ...kgo.Opt) (*Client, error) {
	client, err := kgo.NewClient(append([]kgo.Opt{kgo.SeedBrokers(brokers...)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Client{
		log:     log,
		brokers: brokers,
		opts:    opts,
		client:  client,
		admin:   kadm.NewClient(client),
	}, nil
}

// EnsureTopic creates topic unless it already exists.
func (c *Client) EnsureTopic(ctx context.Context, topic string, partitions int32) error {
	resp, err := c.admin.CreateTopics(ctx, partitions, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, t := range resp {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", t.Topic, t.Err)
		}
	}
	return nil
}

// Publish writes the first count elements of data to topic, one record per
// tile of format. The last tile is zero-padded.
func (c *Client) Publish(ctx context.Context, topic string, format kdag.Format, data []float32, count int) error {
	if count <= 0 || count > len(data) {
		return fmt.Errorf("%w: count %d for %d elements", kdag.ErrInvalidStream, count, len(data))
	}
	tile := kserde.Tile(format)
	perTile := format.TileElements()
	tiles := kserde.TileCount(format, count)

	records := make([]*kgo.Record, 0, tiles)
	for i := 0; i < tiles; i++ {
		key, err := kserde.Uint32.Serializer(uint32(i))
		if err != nil {
			return err
		}
		value, err := tile.Serializer(data[i*perTile : min((i+1)*perTile, count)])
		if err != nil {
			return fmt.Errorf("encode tile %d: %w", i, err)
		}
		records = append(records, &kgo.Record{Topic: topic, Key: key, Value: value})
	}

	if err := c.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	c.log.Debug("Published stream", "topic", topic, "tiles", tiles)
	return nil
}

// Load reads topic from the start until every tile covering count elements
// was seen and decodes them into dst.
func (c *Client) Load(ctx context.Context, topic string, format kdag.Format, dst []float32, count int) error {
	if count <= 0 || count > len(dst) {
		return fmt.Errorf("%w: count %d for %d elements", kdag.ErrInvalidStream, count, len(dst))
	}

	consumer, err := kgo.NewClient(append([]kgo.Opt{
		kgo.SeedBrokers(c.brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	}, c.opts...)...)
	if err != nil {
		return err
	}
	defer consumer.Close()

	tile := kserde.Tile(format)
	perTile := format.TileElements()
	tiles := kserde.TileCount(format, count)
	seen := make([]bool, tiles)
	missing := tiles

	for missing > 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("load %s: %d of %d tiles missing: %w", topic, missing, tiles, err)
		}

		fetches := consumer.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return fmt.Errorf("load %s: client closed", topic)
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("load %s: %d of %d tiles missing: %w", topic, missing, tiles, err)
		}
		if err := fetches.Err(); err != nil {
			return fmt.Errorf("fetch from %s: %w", topic, err)
		}

		var recordErr error
		fetches.EachRecord(func(r *kgo.Record) {
			if recordErr != nil {
				return
			}
			index, err := kserde.Uint32.Deserializer(r.Key)
			if err != nil {
				recordErr = fmt.Errorf("record at offset %d: %w", r.Offset, err)
				return
			}
			if int(index) >= tiles {
				recordErr = fmt.Errorf("record at offset %d: tile %d out of range, stream has %d tiles", r.Offset, index, tiles)
				return
			}
			values, err := tile.Deserializer(r.Value)
			if err != nil {
				recordErr = fmt.Errorf("record at offset %d: %w", r.Offset, err)
				return
			}
			start := int(index) * perTile
			copy(dst[start:min(start+perTile, count)], values)
			if !seen[index] {
				seen[index] = true
				missing--
			}
		})
		if recordErr != nil {
			return recordErr
		}
	}

	c.log.Debug("Loaded stream", "topic", topic, "tiles", tiles)
	return nil
}

func (c *Client) Close() {
	c.client.Close()
}
