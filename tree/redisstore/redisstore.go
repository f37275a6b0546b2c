/*
Package redisstore provides an implementation of tree.NodeStore backed
by a redis database, so that the nodes of trees being grown live outside
the process memory.
*/
package redisstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pbanos/canopy/tree"
	"github.com/pkg/errors"
	"gopkg.in/redis.v5"
)

/*
NodeEncodeDecoder is an interface for objects
that allow encoding nodes into slices of
bytes and decoding them back to nodes.
*/
type NodeEncodeDecoder interface {

	//Encode receives a *tree.Node
	// and returns a slice of bytes with the node
	//encoded or an error if the encoding could not
	//be performed for some reason.
	Encode(*tree.Node) ([]byte, error)

	//Decode receives a slice of bytes
	//and returns a *tree.Node decoded from the
	//slice of bytes or an error if the decoding
	//could not be performed for some reason.
	Decode([]byte) (*tree.Node, error)
}

type redisStore struct {
	rc      *redis.Client
	prefix  string
	nencdec NodeEncodeDecoder
}

// New builds a tree.NodeStore backed by a redis DB
// storing every node under a key with the given prefix.
func New(rc *redis.Client, prefix string, nencdec NodeEncodeDecoder) tree.NodeStore {
	return &redisStore{rc: rc, prefix: prefix, nencdec: nencdec}
}

// Create gives the node the next ID of the store's counter, kept on
// redis under prefix:next_id, and stores it.
func (rs *redisStore) Create(ctx context.Context, n *tree.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := rs.rc.Incr(rs.keyFor("next_id")).Result()
	if err != nil {
		return errors.Wrap(err, "creating node: obtaining id")
	}
	n.ID = strconv.FormatInt(id, 10)
	data, err := rs.nencdec.Encode(n)
	if err != nil {
		return errors.Wrap(err, "creating node: encoding node")
	}
	ok, err := rs.rc.SetNX(rs.keyFor(n.ID), data, 0).Result()
	if err != nil {
		return errors.Wrap(err, "creating node in redis")
	}
	if !ok {
		return errors.Errorf("creating node: key %q already exists", rs.keyFor(n.ID))
	}
	return nil
}

func (rs *redisStore) Get(ctx context.Context, id string) (*tree.Node, error) {
	data, err := rs.rc.Get(rs.keyFor(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "retrieving node %q", id)
	}
	n, err := rs.nencdec.Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "retrieving node %q: decoding %q", id, data)
	}
	return n, nil
}

func (rs *redisStore) Store(ctx context.Context, n *tree.Node) error {
	redisID := rs.keyFor(n.ID)
	data, err := rs.nencdec.Encode(n)
	if err != nil {
		return errors.Wrapf(err, "storing node %q: encoding node", redisID)
	}
	_, err = rs.rc.Set(redisID, data, 0).Result()
	if err != nil {
		return errors.Wrapf(err, "storing node %q in redis", redisID)
	}
	return nil
}

func (rs *redisStore) Delete(ctx context.Context, n *tree.Node) error {
	redisID := rs.keyFor(n.ID)
	_, err := rs.rc.Del(redisID).Result()
	if err != nil {
		return errors.Wrapf(err, "deleting node %q from redis", redisID)
	}
	return nil
}

func (rs *redisStore) Close(ctx context.Context) error {
	return nil
}

/*
Drop deletes every node stored under the given prefix. Use it to free
the redis DB once the trees grown on it are no longer needed.
*/
func Drop(ctx context.Context, rc *redis.Client, prefix string) error {
	var cursor uint64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		keys, next, err := rc.Scan(cursor, fmt.Sprintf("%s:*", prefix), 100).Result()
		if err != nil {
			return errors.Wrapf(err, "scanning nodes with prefix %q", prefix)
		}
		if len(keys) > 0 {
			if _, err = rc.Del(keys...).Result(); err != nil {
				return errors.Wrapf(err, "deleting nodes with prefix %q", prefix)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (rs *redisStore) keyFor(id string) string {
	return fmt.Sprintf("%s:%s", rs.prefix, id)
}
