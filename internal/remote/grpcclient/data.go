package grpcclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/socialhub/internal/models"
	"github.com/dmitrijs2005/socialhub/internal/remote"
	"github.com/dmitrijs2005/socialhub/internal/remote/wire"
)

func (c *Client) Insert(ctx context.Context, collection string, fields models.Record) (models.Record, error) {
	var resp wire.TableResponse
	if err := c.call(ctx, wire.MethodInsert, wire.TableRequest{Collection: collection, Fields: fields}, &resp); err != nil {
		return nil, err
	}
	return resp.Record, nil
}

func (c *Client) Select(ctx context.Context, collection string, q models.Query) ([]models.Record, error) {
	var resp wire.TableResponse
	if err := c.call(ctx, wire.MethodSelect, wire.TableRequest{Collection: collection, Query: &q}, &resp); err != nil {
		return nil, err
	}
	if resp.Records == nil {
		return []models.Record{}, nil
	}
	return resp.Records, nil
}

func (c *Client) Update(ctx context.Context, collection, id string, fields models.Record) (models.Record, error) {
	var resp wire.TableResponse
	if err := c.call(ctx, wire.MethodUpdate, wire.TableRequest{Collection: collection, ID: id, Fields: fields}, &resp); err != nil {
		return nil, err
	}
	return resp.Record, nil
}

func (c *Client) Delete(ctx context.Context, collection, id string) error {
	return c.call(ctx, wire.MethodDelete, wire.TableRequest{Collection: collection, ID: id}, nil)
}

func (c *Client) Single(ctx context.Context, collection, id string) (models.Record, error) {
	var resp wire.TableResponse
	if err := c.call(ctx, wire.MethodSingle, wire.TableRequest{Collection: collection, ID: id}, &resp); err != nil {
		return nil, err
	}
	return resp.Record, nil
}

func (c *Client) Upload(ctx context.Context, bucket, path string, data []byte, opts models.UploadOptions) (*models.UploadResult, error) {
	req := wire.StorageRequest{
		Bucket:       bucket,
		Path:         path,
		Data:         data,
		Upsert:       opts.Upsert,
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
	}
	var resp wire.StorageResponse
	if err := c.call(ctx, wire.MethodUpload, req, &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

func (c *Client) PublicURL(bucket, path string) string {
	return remote.PublicObjectURL(c.publicURL, bucket, path)
}

func (c *Client) Remove(ctx context.Context, bucket string, paths []string) error {
	return c.call(ctx, wire.MethodRemove, wire.StorageRequest{Bucket: bucket, Paths: paths}, nil)
}

func (c *Client) List(ctx context.Context, bucket, folder string) ([]models.FileObject, error) {
	var resp wire.StorageResponse
	if err := c.call(ctx, wire.MethodList, wire.StorageRequest{Bucket: bucket, Folder: folder}, &resp); err != nil {
		return nil, err
	}
	if resp.Files == nil {
		return []models.FileObject{}, nil
	}
	return resp.Files, nil
}

// Subscribe opens a change stream and returns once the backend confirmed
// it. Events are handed to handler from one goroutine, in stream order.
func (c *Client) Subscribe(ctx context.Context, name, collection string, event models.EventType, handler func(models.ChangeEvent)) (remote.Subscription, error) {
	// the stream outlives ctx; it ends on Unsubscribe
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	stream, err := c.store.Subscribe(streamCtx, wire.SubscribeRequest{Channel: name, Collection: collection, Event: event})
	if err != nil {
		cancel()
		return nil, wire.FromStatus(err)
	}

	first, err := stream.Recv()
	if err != nil {
		cancel()
		return nil, wire.FromStatus(err)
	}
	var ack wire.SubscribeAck
	if err := wire.Decode(first, &ack); err != nil || ack.Status != wire.StatusSubscribed {
		cancel()
		return nil, fmt.Errorf("subscribe %s: unexpected first message", name)
	}

	sub := &subscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for {
			msg, err := stream.Recv()
			if err != nil {
				if !errors.Is(err, io.EOF) && streamCtx.Err() == nil {
					c.logger.Warn(streamCtx, "change stream ended", "channel", name, "error", wire.FromStatus(err))
				}
				return
			}
			var ev models.ChangeEvent
			if err := wire.Decode(msg, &ev); err != nil {
				c.logger.Warn(streamCtx, "bad change event", "channel", name, "error", err)
				continue
			}
			handler(ev)
		}
	}()
	return sub, nil
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Unsubscribe cancels the stream and waits for the delivery goroutine.
func (s *subscription) Unsubscribe() error {
	s.once.Do(s.cancel)
	<-s.done
	return nil
}
