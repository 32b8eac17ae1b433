// Package redisstore stores objects in Redis as JSON snapshots. Saves are
// checked against the stored version inside a WATCH transaction, and each
// archetype keeps a set of its ids for Find.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/crochee/taskchain/object"
)

const DefaultPrefix = "taskchain:"

type Store struct {
	client redis.UniversalClient
	prefix string
}

type Option func(*Store)

// WithPrefix namespaces every key written by the store.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) objectKey(ref object.Reference) string {
	return s.prefix + "object:" + ref.Archetype + ":" + ref.ID
}

func (s *Store) indexKey(archetype string) string {
	return s.prefix + "index:" + archetype
}

func (s *Store) Get(ctx context.Context, ref object.Reference) (*object.Object, error) {
	return s.get(ctx, s.client, ref)
}

// getter is the part of a client or transaction used to load an object.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) get(ctx context.Context, c getter, ref object.Reference) (*object.Object, error) {
	data, err := c.Get(ctx, s.objectKey(ref)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("get %s: %w", ref, object.ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", ref, err)
	}
	snap, err := object.DecodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ref, err)
	}
	return object.FromSnapshot(snap), nil
}

func (s *Store) Save(ctx context.Context, obj *object.Object) error {
	ref := obj.Reference()
	key := s.objectKey(ref)
	next := obj.Version() + 1
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := s.get(ctx, tx, ref)
		switch {
		case errors.Is(err, object.ErrNotFound):
			if !obj.IsNew() {
				return err
			}
		case err != nil:
			return err
		case stored.Version() != obj.Version():
			return fmt.Errorf("save %s at version %d, stored %d: %w",
				ref, obj.Version(), stored.Version(), object.ErrConflict)
		}

		snap := obj.Snapshot()
		snap.Version = next
		data, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("encode %s: %w", ref, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, s.indexKey(ref.Archetype), ref.ID)
			return nil
		})
		return err
	}, key)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return fmt.Errorf("save %s: %w", ref, object.ErrConflict)
		}
		return err
	}
	obj.SetVersion(next)
	return nil
}

func (s *Store) Remove(ctx context.Context, obj *object.Object) error {
	ref := obj.Reference()
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.objectKey(ref))
		pipe.SRem(ctx, s.indexKey(ref.Archetype), ref.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove %s: %w", ref, err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("remove %s: %w", ref, object.ErrNotFound)
	}
	return nil
}

// Find loads every indexed object of the given archetypes, ordered by reference.
func (s *Store) Find(ctx context.Context, archetypes ...string) ([]*object.Object, error) {
	result := make([]*object.Object, 0)
	for _, archetype := range archetypes {
		ids, err := s.client.SMembers(ctx, s.indexKey(archetype)).Result()
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", archetype, err)
		}
		for _, id := range ids {
			obj, err := s.Get(ctx, object.Reference{Archetype: archetype, ID: id})
			if errors.Is(err, object.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			result = append(result, obj)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Reference().String() < result[j].Reference().String()
	})
	return result, nil
}
