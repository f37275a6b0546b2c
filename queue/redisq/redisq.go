/*
Package redisq implements a queue.Queue on redis, so that the growth of a
tree can be inspected or resumed from outside the process.
*/
package redisq

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pbanos/canopy/queue"
	"github.com/pkg/errors"
	redis "gopkg.in/redis.v5"
)

/*
EncodeDecoder is an interface for objects
that allow encoding tasks as slices of bytes and decoding
them back to tasks. It is used to serialize tasks into a
representation to store on redis
*/
type EncodeDecoder interface {
	Encode(context.Context, *queue.Task) ([]byte, error)
	Decode(context.Context, []byte) (*queue.Task, error)
}

type redisQ struct {
	id         string
	rc         *redis.Client
	allTaskCtx context.Context
	allTaskCF  context.CancelFunc
	taskMaxRun time.Duration
	lockTTL    time.Duration
	cancels    map[string]context.CancelFunc
	lock       sync.Mutex
	EncodeDecoder
}

const lockReleaseScript = `
if redis.call("GET",KEYS[1]) == ARGV[1] then
    return redis.call("DEL",KEYS[1])
else
    return 0
end
`
const lockAttempts = 5
const failToLockSleep = 10 * time.Millisecond

/*
New returns a queue.Queue that uses the given redis client as a
backend. It uses the given id to prefix the keys used on the
redis client to keep the queue's data, which are the following:
  - id:pending is the key to a set with the ids of the pending tasks
  - id:running is the key to a set with the ids of the running tasks
  - id:task:task_id:data is the key to a string that holds the task data.
    Tasks are encoded and decoded using the given EncodeDecoder.
  - id:task:task_id:lock implements a lock for exclusive management of a
    task on the queue. It is set to expire in the given lockTTL duration
  - id:task:task_id:running marks the task as running and expires in the
    given taskMaxRun duration. Once the key expires a cleanup process
    drops the task back to pending. A zero taskMaxRun keeps the mark
    from expiring and disables the cleanup process.

The returned queue is safe for concurrent use by multiple goroutines.
*/
func New(id string, rc *redis.Client, taskMaxRun, lockTTL time.Duration, encDec EncodeDecoder) queue.Queue {
	ctx, cf := context.WithCancel(context.Background())
	rq := &redisQ{
		id:            id,
		rc:            rc,
		allTaskCtx:    ctx,
		allTaskCF:     cf,
		taskMaxRun:    taskMaxRun,
		lockTTL:       lockTTL,
		cancels:       make(map[string]context.CancelFunc),
		EncodeDecoder: encDec,
	}
	if taskMaxRun > 0 {
		go rq.dropTimedOutTasks()
	}
	return rq
}

func (rq *redisQ) Push(ctx context.Context, t *queue.Task) error {
	data, err := rq.Encode(ctx, t)
	if err != nil {
		return errors.Wrapf(err, "pushing task %s to queue", t.ID())
	}
	tKeyPrefix := rq.taskKeyPrefix(t.ID())
	tDataKey := fmt.Sprintf("%s:data", tKeyPrefix)
	ok, err := rq.rc.SetNX(tDataKey, string(data), time.Duration(0)).Result()
	if err != nil {
		return errors.Wrapf(err, "pushing task %s to queue", t.ID())
	}
	if !ok {
		return errors.Errorf("pushing task %s to queue: key %q already exists", t.ID(), tDataKey)
	}
	added, err := rq.rc.SAdd(rq.pendingSetKey(), tKeyPrefix).Result()
	if err != nil || added != 1 {
		rq.rc.Del(tDataKey)
		if err == nil {
			err = errors.Errorf("%q already in pending set %q", tKeyPrefix, rq.pendingSetKey())
		}
		return errors.Wrapf(err, "pushing task %s to queue %s", t.ID(), rq.id)
	}
	return nil
}

func (rq *redisQ) Pull(ctx context.Context) (*queue.Task, context.Context, error) {
	iter := rq.rc.SScan(rq.pendingSetKey(), 0, "", 0).Iterator()
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		taskKeyPrefix := iter.Val()
		err := rq.withLockFor(ctx, taskKeyPrefix, 0, func(ctx context.Context) error {
			ok, err := rq.rc.SetNX(fmt.Sprintf("%s:running", taskKeyPrefix), "true", rq.taskMaxRun).Result()
			if err != nil {
				return err
			}
			if !ok {
				return errors.Errorf("task %q already running", taskKeyPrefix)
			}
			_, err = rq.rc.SMove(rq.pendingSetKey(), rq.runningSetKey(), taskKeyPrefix).Result()
			if err != nil {
				if ctx.Err() == nil {
					rq.rc.Del(fmt.Sprintf("%s:running", taskKeyPrefix))
				}
				return errors.Wrapf(err, "moving %q from %q set to %q set", taskKeyPrefix, rq.pendingSetKey(), rq.runningSetKey())
			}
			return nil
		})
		if err != nil {
			continue
		}
		id := taskID(taskKeyPrefix)
		tData, err := rq.rc.Get(fmt.Sprintf("%s:data", taskKeyPrefix)).Result()
		if err != nil {
			rq.Drop(ctx, id)
			return nil, nil, errors.Wrapf(err, "getting data of task %s", id)
		}
		t, err := rq.Decode(ctx, []byte(tData))
		if err != nil {
			rq.Drop(ctx, id)
			return nil, nil, errors.Wrapf(err, "decoding task %s", id)
		}
		return t, rq.taskContext(id), nil
	}
	if err := iter.Err(); err != nil {
		return nil, nil, errors.Wrapf(err, "iterating over pending tasks in %q set", rq.pendingSetKey())
	}
	return nil, nil, nil
}

func (rq *redisQ) Drop(ctx context.Context, id string) error {
	rq.releaseTaskContext(id)
	tKeyPrefix := rq.taskKeyPrefix(id)
	err := rq.withLockFor(ctx, tKeyPrefix, lockAttempts, func(ctx context.Context) error {
		ok, err := rq.rc.SMove(rq.runningSetKey(), rq.pendingSetKey(), tKeyPrefix).Result()
		if err != nil {
			return errors.Wrapf(err, "moving %q from %q to %q", tKeyPrefix, rq.runningSetKey(), rq.pendingSetKey())
		}
		if !ok {
			return nil
		}
		runningMarkKey := fmt.Sprintf("%s:running", tKeyPrefix)
		_, err = rq.rc.Del(runningMarkKey).Result()
		return errors.Wrapf(err, "removing %q", runningMarkKey)
	})
	return errors.Wrapf(err, "dropping %s", id)
}

func (rq *redisQ) Complete(ctx context.Context, id string) error {
	rq.releaseTaskContext(id)
	tKeyPrefix := rq.taskKeyPrefix(id)
	err := rq.withLockFor(ctx, tKeyPrefix, lockAttempts, func(ctx context.Context) error {
		count, err := rq.rc.SRem(rq.runningSetKey(), tKeyPrefix).Result()
		if err != nil {
			return errors.Wrapf(err, "removing %q from %q", tKeyPrefix, rq.runningSetKey())
		}
		if count == 0 {
			return nil
		}
		_, err = rq.rc.Del(fmt.Sprintf("%s:running", tKeyPrefix), fmt.Sprintf("%s:data", tKeyPrefix)).Result()
		return errors.Wrapf(err, "removing keys of %q", tKeyPrefix)
	})
	return errors.Wrapf(err, "completing %s", id)
}

func (rq *redisQ) Count(context.Context) (int, int, error) {
	// both sets are counted at once so a task moving between them does
	// not look like the end of the work
	cmd := redis.NewSliceCmd(
		"EVAL",
		`return {redis.call("SCARD", KEYS[1]), redis.call("SCARD", KEYS[2])}`,
		2,
		rq.pendingSetKey(),
		rq.runningSetKey(),
	)
	err := rq.rc.Process(cmd)
	if err != nil {
		return 0, 0, errors.Wrap(err, "counting tasks")
	}
	v, err := cmd.Result()
	if err != nil {
		return 0, 0, errors.Wrap(err, "counting tasks")
	}
	if len(v) != 2 {
		return 0, 0, errors.Errorf("counting tasks: redis returned %d counts instead of 2", len(v))
	}
	p, ok := v[0].(int64)
	if !ok {
		return 0, 0, errors.Errorf("counting tasks: cannot extract integer pending tasks count from %v (%T)", v[0], v[0])
	}
	r, ok := v[1].(int64)
	if !ok {
		return 0, 0, errors.Errorf("counting tasks: cannot extract integer running tasks count from %v (%T)", v[1], v[1])
	}
	return int(p), int(r), nil
}

// Stop cancels the contexts of running tasks and removes every key of
// the queue from redis.
func (rq *redisQ) Stop(ctx context.Context) error {
	rq.allTaskCF()
	rq.lock.Lock()
	for id, cf := range rq.cancels {
		cf()
		delete(rq.cancels, id)
	}
	rq.lock.Unlock()
	var keys []string
	iter := rq.rc.Scan(0, rq.id+":*", 0).Iterator()
	for iter.Next() {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return errors.Wrapf(err, "stopping queue %s: listing keys", rq.id)
	}
	if len(keys) == 0 {
		return nil
	}
	_, err := rq.rc.Del(keys...).Result()
	return errors.Wrapf(err, "stopping queue %s: deleting keys", rq.id)
}

func (rq *redisQ) String() string {
	return fmt.Sprintf("{Redis queue %s}", rq.id)
}

func (rq *redisQ) taskContext(id string) context.Context {
	if rq.taskMaxRun == 0 {
		return rq.allTaskCtx
	}
	tctx, tcf := context.WithTimeout(rq.allTaskCtx, rq.taskMaxRun)
	rq.lock.Lock()
	rq.cancels[id] = tcf
	rq.lock.Unlock()
	return tctx
}

func (rq *redisQ) releaseTaskContext(id string) {
	rq.lock.Lock()
	defer rq.lock.Unlock()
	if cf, ok := rq.cancels[id]; ok {
		cf()
		delete(rq.cancels, id)
	}
}

func (rq *redisQ) taskKeyPrefix(taskID string) string {
	return fmt.Sprintf("%s:task:%s", rq.id, taskID)
}

func (rq *redisQ) pendingSetKey() string {
	return fmt.Sprintf("%s:pending", rq.id)
}

func (rq *redisQ) runningSetKey() string {
	return fmt.Sprintf("%s:running", rq.id)
}

func (rq *redisQ) withLockFor(ctx context.Context, taskKeyPrefix string, additionalAttempts int, f func(ctx context.Context) error) error {
	tLockKey := fmt.Sprintf("%s:lock", taskKeyPrefix)
	tLockValue := lockToken()
	lctx, cf := context.WithTimeout(ctx, rq.lockTTL)
	defer cf()
	ok, err := rq.rc.SetNX(tLockKey, tLockValue, rq.lockTTL).Result()
	if err != nil {
		return errors.Wrap(err, "could not acquire lock")
	}
	if !ok {
		if additionalAttempts > 0 {
			cf()
			d, _ := rq.rc.TTL(tLockKey).Result()
			if d < 0 {
				d = 0
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d + time.Duration(rand.Int63n(int64(failToLockSleep)*int64(additionalAttempts)))):
			}
			return rq.withLockFor(ctx, taskKeyPrefix, additionalAttempts-1, f)
		}
		return errors.New("could not acquire lock: already taken")
	}
	defer rq.rc.Eval(lockReleaseScript, []string{tLockKey}, tLockValue)
	return f(lctx)
}

func (rq *redisQ) dropTimedOutTasks() {
	ticker := time.NewTicker(rq.taskMaxRun / 2)
	defer ticker.Stop()
	for {
		iter := rq.rc.SScan(rq.runningSetKey(), 0, "", 0).Iterator()
		for iter.Next() {
			var timedOut bool
			tKeyPrefix := iter.Val()
			rq.withLockFor(rq.allTaskCtx, tKeyPrefix, 0, func(ctx context.Context) error {
				exists, err := rq.rc.Exists(fmt.Sprintf("%s:running", tKeyPrefix)).Result()
				if err != nil {
					return err
				}
				timedOut = !exists
				return nil
			})
			if timedOut {
				rq.Drop(rq.allTaskCtx, taskID(tKeyPrefix))
			}
			if rq.allTaskCtx.Err() != nil {
				return
			}
		}
		select {
		case <-rq.allTaskCtx.Done():
			return
		case <-ticker.C:
		}
	}
}

func taskID(taskKeyPrefix string) string {
	tokens := strings.Split(taskKeyPrefix, ":")
	return tokens[len(tokens)-1]
}

func lockToken() string {
	return strconv.FormatInt(rand.Int63(), 36)
}
