// Package jobs is a durable, retryable work queue kept in redis together with
// the worker pool that consumes it.
//
// Every queue owns a hash of job envelopes and sorted sets for the waiting,
// delayed, active, completed and failed states. Waiting jobs are ordered by
// priority then insertion order (FIFO or LIFO), active jobs hold a lease and
// are handed back to waiting when the lease lapses.
package jobs

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"

	"github.com/soapboxsocial/fanout/pkg/cache"
)

const scanLimit = 100

// State is a job lifecycle state.
type State string

const (
	Waiting   State = "waiting"
	Delayed   State = "delayed"
	Active    State = "active"
	Completed State = "completed"
	Failed    State = "failed"
)

var states = []State{Waiting, Delayed, Active, Completed, Failed}

// enqueueScript adds a job unless its id is held by a job that has not
// finished yet, a completed or failed job with the same id is replaced.
var enqueueScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1 then
	local finished = redis.call('ZREM', KEYS[4], ARGV[1]) + redis.call('ZREM', KEYS[5], ARGV[1])
	if finished == 0 then
		return 0
	end
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
if tonumber(ARGV[4]) > 0 then
	redis.call('ZADD', KEYS[3], ARGV[4], ARGV[1])
else
	redis.call('ZADD', KEYS[2], ARGV[3], ARGV[1])
end
return 1
`)

var reserveScript = redis.NewScript(`
local ids = redis.call('ZRANGE', KEYS[1], 0, 0)
if #ids == 0 then
	return false
end
local id = ids[1]
redis.call('ZREM', KEYS[1], id)
local payload = redis.call('HGET', KEYS[3], id)
if not payload then
	return false
end
redis.call('ZADD', KEYS[2], ARGV[1], id)
redis.call('HSET', KEYS[4], id, ARGV[2])
return payload
`)

// extendScript pushes the lease deadline of an active job, only while the
// caller still holds the lease.
var extendScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], ARGV[1]) ~= ARGV[2] then
	return 0
end
redis.call('ZADD', KEYS[2], 'XX', ARGV[3], ARGV[1])
return 1
`)

// finishScript moves an active job out of active while the caller still holds
// its lease. ARGV[3] is one of keep, set or delete for the envelope, ARGV[5]
// is the score in KEYS[4], empty to not add it anywhere.
var finishScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], ARGV[1]) ~= ARGV[2] then
	return 0
end
redis.call('HDEL', KEYS[1], ARGV[1])
redis.call('ZREM', KEYS[2], ARGV[1])
if ARGV[3] == 'delete' then
	redis.call('HDEL', KEYS[3], ARGV[1])
elseif ARGV[3] == 'set' then
	redis.call('HSET', KEYS[3], ARGV[1], ARGV[4])
end
if ARGV[5] ~= '' then
	redis.call('ZADD', KEYS[4], ARGV[5], ARGV[1])
end
return 1
`)

const (
	keepEnvelope   = "keep"
	setEnvelope    = "set"
	deleteEnvelope = "delete"
)

// Queue is a named job queue.
type Queue struct {
	rdb  *redis.Client
	name string
}

func NewQueue(rdb *redis.Client, name string) *Queue {
	return &Queue{rdb: rdb, name: name}
}

// Name returns the queue name.
func (q *Queue) Name() string {
	return q.name
}

// Enqueue adds a job named name carrying data. When opts.JobID is set and a
// job with that id is still waiting, delayed or active, ErrDuplicateJob is
// returned and nothing is added. A finished job with that id is replaced.
func (q *Queue) Enqueue(ctx context.Context, name string, data interface{}, opts Options) (*Job, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode job data")
	}

	seq, err := q.rdb.Incr(ctx, q.key("seq")).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate sequence")
	}

	id := opts.JobID
	if id == "" {
		id = ksuid.New().String()
	}

	now := time.Now()
	job := &Job{
		ID:        id,
		Queue:     q.name,
		Name:      name,
		Data:      raw,
		Options:   opts,
		Score:     score(opts.Priority, opts.LIFO, seq),
		CreatedAt: now.UnixNano() / int64(time.Millisecond),
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode job")
	}

	var until int64
	if opts.Delay > 0 {
		until = millis(now.Add(opts.Delay))
	}

	added, err := enqueueScript.Run(
		ctx,
		q.rdb,
		[]string{q.key("data"), q.key(string(Waiting)), q.key(string(Delayed)), q.key(string(Completed)), q.key(string(Failed))},
		id, string(payload), strconv.FormatFloat(job.Score, 'f', -1, 64), until,
	).Int()
	if err != nil {
		return nil, errors.Wrap(err, "failed to enqueue")
	}

	if added == 0 {
		return nil, ErrDuplicateJob
	}

	return job, nil
}

// Reserve moves the next waiting job to active with a lease that lapses
// after lease unless extended. It returns nil when nothing is waiting.
func (q *Queue) Reserve(ctx context.Context, lease time.Duration) (*Job, error) {
	deadline := millis(time.Now().Add(lease))
	token := ksuid.New().String()

	payload, err := reserveScript.Run(
		ctx,
		q.rdb,
		[]string{q.key(string(Waiting)), q.key(string(Active)), q.key("data"), q.key("locks")},
		deadline, token,
	).Text()
	if err == redis.Nil {
		return nil, nil
	}

	if err != nil {
		return nil, errors.Wrap(err, "failed to reserve")
	}

	job := &Job{}
	err = json.Unmarshal([]byte(payload), job)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode job")
	}

	job.Token = token

	return job, nil
}

// Extend renews the lease of an active job. ErrLeaseLost is returned when
// the lease lapsed and the job was handed out again.
func (q *Queue) Extend(ctx context.Context, job *Job, lease time.Duration) error {
	extended, err := extendScript.Run(
		ctx,
		q.rdb,
		[]string{q.key("locks"), q.key(string(Active))},
		job.ID, job.Token, millis(time.Now().Add(lease)),
	).Int()
	if err != nil {
		return errors.Wrap(err, "failed to extend lease")
	}

	if extended == 0 {
		return ErrLeaseLost
	}

	return nil
}

// Complete finishes an active job. ErrLeaseLost is returned and nothing
// changes when the job was handed out again.
func (q *Queue) Complete(ctx context.Context, job *Job) error {
	retention := job.Options.RemoveOnComplete

	mode, score := keepEnvelope, strconv.FormatInt(millis(time.Now()), 10)
	if retention.Remove {
		mode, score = deleteEnvelope, ""
	}

	err := q.finish(ctx, job, Completed, mode, "", score)
	if err != nil {
		return err
	}

	return q.trim(ctx, Completed, retention)
}

// Fail records a failed attempt of an active job. The job is scheduled again
// unless its attempts are exhausted or cause was marked Permanent, retry
// reports which happened. ErrLeaseLost is returned and nothing changes when
// the job was handed out again.
func (q *Queue) Fail(ctx context.Context, job *Job, cause error) (retry bool, err error) {
	job.Attempts++
	job.FailedReason = cause.Error()

	retry = !IsPermanent(cause) && job.Attempts < job.Options.maxAttempts()

	payload, err := json.Marshal(job)
	if err != nil {
		return false, errors.Wrap(err, "failed to encode job")
	}

	now := time.Now()

	switch {
	case retry:
		delay := job.Options.Backoff.Next(job.Attempts)
		if delay > 0 {
			err = q.finish(ctx, job, Delayed, setEnvelope, string(payload), strconv.FormatInt(millis(now.Add(delay)), 10))
		} else {
			err = q.finish(ctx, job, Waiting, setEnvelope, string(payload), strconv.FormatFloat(job.Score, 'f', -1, 64))
		}
	case job.Options.RemoveOnFail.Remove:
		err = q.finish(ctx, job, Failed, deleteEnvelope, "", "")
	default:
		err = q.finish(ctx, job, Failed, setEnvelope, string(payload), strconv.FormatInt(millis(now), 10))
	}

	if err != nil {
		return false, err
	}

	if retry {
		return true, nil
	}

	return false, q.trim(ctx, Failed, job.Options.RemoveOnFail)
}

func (q *Queue) finish(ctx context.Context, job *Job, to State, mode, payload, score string) error {
	finished, err := finishScript.Run(
		ctx,
		q.rdb,
		[]string{q.key("locks"), q.key(string(Active)), q.key("data"), q.key(string(to))},
		job.ID, job.Token, mode, payload, score,
	).Int()
	if err != nil {
		return errors.Wrapf(err, "failed to move job to %s", to)
	}

	if finished == 0 {
		return ErrLeaseLost
	}

	return nil
}

// Promote moves delayed jobs that are due at now back to waiting.
func (q *Queue) Promote(ctx context.Context, now time.Time) (int, error) {
	return q.move(ctx, Delayed, now)
}

// RequeueStalled moves active jobs whose lease lapsed before now back to
// waiting.
func (q *Queue) RequeueStalled(ctx context.Context, now time.Time) (int, error) {
	return q.move(ctx, Active, now)
}

func (q *Queue) move(ctx context.Context, from State, now time.Time) (int, error) {
	ids, err := q.rdb.ZRangeByScore(ctx, q.key(string(from)), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(millis(now), 10),
		Count: scanLimit,
	}).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "failed to scan %s", from)
	}

	moved := 0
	for _, id := range ids {
		// only the caller that removes the id moves it
		removed, err := q.rdb.ZRem(ctx, q.key(string(from)), id).Result()
		if err != nil {
			return moved, errors.Wrapf(err, "failed to remove from %s", from)
		}

		if removed == 0 {
			continue
		}

		if from == Active {
			// the previous holder can no longer extend or finish the job
			err := q.rdb.HDel(ctx, q.key("locks"), id).Err()
			if err != nil {
				return moved, errors.Wrap(err, "failed to release lease")
			}
		}

		job, err := q.Get(ctx, id)
		if err != nil {
			return moved, err
		}

		if job == nil {
			continue
		}

		err = q.rdb.ZAdd(ctx, q.key(string(Waiting)), &redis.Z{Score: job.Score, Member: id}).Err()
		if err != nil {
			return moved, errors.Wrap(err, "failed to requeue")
		}

		moved++
	}

	return moved, nil
}

// RetryFailed moves up to limit failed jobs back to waiting with their
// attempts reset.
func (q *Queue) RetryFailed(ctx context.Context, limit int) (int, error) {
	ids, err := q.rdb.ZRange(ctx, q.key(string(Failed)), 0, int64(limit-1)).Result()
	if err != nil {
		return 0, errors.Wrap(err, "failed to list failed jobs")
	}

	retried := 0
	for _, id := range ids {
		job, err := q.Get(ctx, id)
		if err != nil {
			return retried, err
		}

		if job == nil {
			q.rdb.ZRem(ctx, q.key(string(Failed)), id)
			continue
		}

		job.Attempts = 0
		job.FailedReason = ""

		payload, err := json.Marshal(job)
		if err != nil {
			return retried, errors.Wrap(err, "failed to encode job")
		}

		pipe := q.rdb.TxPipeline()
		pipe.ZRem(ctx, q.key(string(Failed)), id)
		pipe.HSet(ctx, q.key("data"), id, string(payload))
		pipe.ZAdd(ctx, q.key(string(Waiting)), &redis.Z{Score: job.Score, Member: id})

		_, err = pipe.Exec(ctx)
		if err != nil {
			return retried, errors.Wrap(err, "failed to retry job")
		}

		retried++
	}

	return retried, nil
}

// Get returns the job with id, nil when it does not exist.
func (q *Queue) Get(ctx context.Context, id string) (*Job, error) {
	payload, err := q.rdb.HGet(ctx, q.key("data"), id).Result()
	if err == redis.Nil {
		return nil, nil
	}

	if err != nil {
		return nil, errors.Wrap(err, "failed to get job")
	}

	job := &Job{}
	err = json.Unmarshal([]byte(payload), job)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode job")
	}

	return job, nil
}

// Counts returns the number of jobs in each state.
func (q *Queue) Counts(ctx context.Context) (map[State]int64, error) {
	pipe := q.rdb.Pipeline()

	cmds := make(map[State]*redis.IntCmd)
	for _, s := range states {
		cmds[s] = pipe.ZCard(ctx, q.key(string(s)))
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count")
	}

	result := make(map[State]int64)
	for s, cmd := range cmds {
		result[s] = cmd.Val()
	}

	return result, nil
}

func (q *Queue) trim(ctx context.Context, state State, retention Retention) error {
	key := q.key(string(state))

	ids := make([]string, 0)

	if retention.Count > 0 {
		old, err := q.rdb.ZRange(ctx, key, 0, int64(-retention.Count-1)).Result()
		if err != nil {
			return errors.Wrap(err, "failed to trim")
		}

		ids = append(ids, old...)
	}

	if retention.Age > 0 {
		old, err := q.rdb.ZRangeByScore(ctx, key, &redis.ZRangeBy{
			Min: "-inf",
			Max: strconv.FormatInt(millis(time.Now().Add(-retention.Age)), 10),
		}).Result()
		if err != nil {
			return errors.Wrap(err, "failed to trim")
		}

		ids = append(ids, old...)
	}

	if len(ids) == 0 {
		return nil
	}

	members := make([]interface{}, len(ids))
	fields := make([]string, len(ids))
	for i, id := range ids {
		members[i] = id
		fields[i] = id
	}

	pipe := q.rdb.TxPipeline()
	pipe.ZRem(ctx, key, members...)
	pipe.HDel(ctx, q.key("data"), fields...)

	_, err := pipe.Exec(ctx)
	return err
}

func (q *Queue) key(part string) string {
	return cache.Key(cache.Queue, q.name+":"+part)
}

func millis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}
