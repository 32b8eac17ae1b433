// Package natskv stores objects in a NATS JetStream key/value bucket. The
// object version is the revision of its key, so Update against a stale
// revision fails with object.ErrConflict.
package natskv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/crochee/taskchain/object"
)

// Connect dials NATS at url, or at NATS_URL when url is empty.
func Connect(url string, log *zap.Logger) (*nats.Conn, error) {
	if url == "" {
		url = os.Getenv("NATS_URL")
	}
	if url == "" {
		url = nats.DefaultURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	nc, err := nats.Connect(
		url,
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.PingInterval(20*time.Second),
		nats.MaxPingsOutstanding(5),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

type Store struct {
	kv jetstream.KeyValue
}

func New(kv jetstream.KeyValue) *Store {
	return &Store{kv: kv}
}

// Open creates the bucket if needed and returns a store on it.
func Open(ctx context.Context, nc *nats.Conn, bucket string) (*Store, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream instance: %w", err)
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "taskchain objects",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure KV %s: %w", bucket, err)
	}
	return New(kv), nil
}

func key(ref object.Reference) string {
	return ref.Archetype + "." + ref.ID
}

func (s *Store) Get(ctx context.Context, ref object.Reference) (*object.Object, error) {
	entry, err := s.kv.Get(ctx, key(ref))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil, fmt.Errorf("get %s: %w", ref, object.ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", ref, err)
	}
	return decode(entry)
}

func (s *Store) Save(ctx context.Context, obj *object.Object) error {
	ref := obj.Reference()
	data, err := json.Marshal(obj.Snapshot())
	if err != nil {
		return fmt.Errorf("encode %s: %w", ref, err)
	}
	var revision uint64
	if obj.IsNew() {
		revision, err = s.kv.Create(ctx, key(ref), data)
	} else {
		revision, err = s.kv.Update(ctx, key(ref), data, obj.Version())
	}
	if err != nil {
		if isWrongRevision(err) {
			return fmt.Errorf("save %s at revision %d: %w", ref, obj.Version(), object.ErrConflict)
		}
		return fmt.Errorf("save %s: %w", ref, err)
	}
	obj.SetVersion(revision)
	return nil
}

func (s *Store) Remove(ctx context.Context, obj *object.Object) error {
	ref := obj.Reference()
	if _, err := s.Get(ctx, ref); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	if err := s.kv.Delete(ctx, key(ref)); err != nil {
		return fmt.Errorf("remove %s: %w", ref, err)
	}
	return nil
}

// Find lists the bucket keys and loads the objects of the given archetypes,
// ordered by reference.
func (s *Store) Find(ctx context.Context, archetypes ...string) ([]*object.Object, error) {
	lister, err := s.kv.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer func() { _ = lister.Stop() }()

	want := make(map[string]bool, len(archetypes))
	for _, a := range archetypes {
		want[a] = true
	}
	result := make([]*object.Object, 0)
	for k := range lister.Keys() {
		i := strings.LastIndex(k, ".")
		if i < 0 || !want[k[:i]] {
			continue
		}
		entry, err := s.kv.Get(ctx, k)
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", k, err)
		}
		obj, err := decode(entry)
		if err != nil {
			return nil, err
		}
		result = append(result, obj)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Reference().String() < result[j].Reference().String()
	})
	return result, nil
}

func decode(entry jetstream.KeyValueEntry) (*object.Object, error) {
	snap, err := object.DecodeSnapshot(entry.Value())
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", entry.Key(), err)
	}
	snap.Version = entry.Revision()
	return object.FromSnapshot(snap), nil
}

func isWrongRevision(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}
