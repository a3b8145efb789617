// Package discovery's etcd-backed implementation.
//
// etcd stores each backend under /mcproxy/{group}/{addr}, using a TTL lease
// so a crashed backend's entry expires on its own instead of lingering as a
// ghost upstream the acceptor keeps trying to dial.
package discovery

import (
	"context"
	"encoding/json"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdDiscovery implements Discovery using etcd v3.
type EtcdDiscovery struct {
	client *clientv3.Client
}

// NewEtcdDiscovery connects to the given etcd endpoints.
func NewEtcdDiscovery(endpoints []string) (*EtcdDiscovery, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints: endpoints,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdDiscovery{client: c}, nil
}

func key(group, addr string) string {
	return "/mcproxy/" + group + "/" + addr
}

func prefix(group string) string {
	return "/mcproxy/" + group + "/"
}

// Register grants a lease, puts inst under it, and starts KeepAlive bound to
// ctx: canceling ctx stops renewal and lets the lease (and the etcd key
// riding on it) expire on its own, the same teardown path a crashed backend
// gets for free.
func (d *EtcdDiscovery) Register(ctx context.Context, group string, inst Instance, ttlSeconds int64) error {
	lease, err := d.client.Grant(ctx, ttlSeconds)
	if err != nil {
		return err
	}

	val, err := json.Marshal(inst)
	if err != nil {
		return err
	}

	if _, err := d.client.Put(ctx, key(group, inst.Addr), string(val), clientv3.WithLease(lease.ID)); err != nil {
		return err
	}

	keepAlive, err := d.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return err
	}
	// Drain keepalive acks so the channel doesn't back up; it closes on its
	// own once ctx is canceled or the lease can no longer be renewed.
	go func() {
		for range keepAlive {
		}
	}()
	return nil
}

func (d *EtcdDiscovery) Deregister(ctx context.Context, group string, addr string) error {
	_, err := d.client.Delete(ctx, key(group, addr))
	return err
}

// Watch streams updated instance lists for group until ctx is canceled,
// at which point etcd's Watch closes its channel and this goroutine exits,
// closing ch in turn.
func (d *EtcdDiscovery) Watch(ctx context.Context, group string) <-chan []Instance {
	ch := make(chan []Instance, 1)

	go func() {
		defer close(ch)
		watchChan := d.client.Watch(ctx, prefix(group), clientv3.WithPrefix())
		for range watchChan {
			instances, err := d.Discover(ctx, group)
			if err != nil {
				continue
			}
			select {
			case ch <- instances:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}

func (d *EtcdDiscovery) Discover(ctx context.Context, group string) ([]Instance, error) {
	resp, err := d.client.Get(ctx, prefix(group), clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	instances := make([]Instance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var inst Instance
		if err := json.Unmarshal(kv.Value, &inst); err != nil {
			continue
		}
		instances = append(instances, inst)
	}
	return instances, nil
}
