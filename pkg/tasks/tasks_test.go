package tasks_test

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/soapboxsocial/fanout/pkg/jobs"
	"github.com/soapboxsocial/fanout/pkg/tasks"
)

func newProducer(t *testing.T) *tasks.Producer {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(mr.Close)

	return tasks.NewProducer(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func reserve(t *testing.T, p *tasks.Producer, queue string) *jobs.Job {
	job, err := p.Queue(queue).Reserve(context.Background(), time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if job == nil {
		t.Fatalf("expected job on %s", queue)
	}

	return job
}

func TestProducer_PostFanout(t *testing.T) {
	ctx := context.Background()
	p := newProducer(t)

	for i := 0; i < 2; i++ {
		err := p.PostFanout(ctx, "post1", 7)
		if err != nil {
			t.Fatal(err)
		}
	}

	counts, err := p.Queue(tasks.HomeFeedQueue).Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if counts[jobs.Waiting] != 1 {
		t.Fatalf("expected 1 waiting job, got %d", counts[jobs.Waiting])
	}

	job := reserve(t, p, tasks.HomeFeedQueue)
	if job.ID != "post-fanout:post1:7" {
		t.Fatalf("unexpected id %s", job.ID)
	}

	if job.Options.Priority != 2 || job.Options.Attempts != 3 || job.Options.Backoff.Type != jobs.BackoffFixed {
		t.Fatalf("unexpected options %+v", job.Options)
	}

	task, err := tasks.DecodeHomeFeedTask(job)
	if err != nil {
		t.Fatal(err)
	}

	expected := tasks.PostFanout{PostID: "post1", AuthorID: 7}
	if !reflect.DeepEqual(task, expected) {
		t.Fatalf("expected %+v, got %+v", expected, task)
	}
}

func TestProducer_StoryFollow(t *testing.T) {
	ctx := context.Background()
	p := newProducer(t)

	err := p.StoryFollow(ctx, tasks.ActionUnfollow, 1, 2, true)
	if err != nil {
		t.Fatal(err)
	}

	job := reserve(t, p, tasks.StoryFollowQueue)
	if job.ID != "story-follow:1:2" {
		t.Fatalf("unexpected id %s", job.ID)
	}

	if job.Options.RemoveOnFail.Count != 50 {
		t.Fatalf("unexpected retention %+v", job.Options.RemoveOnFail)
	}

	task, err := tasks.DecodeStoryFollowTask(job)
	if err != nil {
		t.Fatal(err)
	}

	expected := tasks.Unfollow{Follower: 1, Creator: 2, IsPopular: true}
	if !reflect.DeepEqual(task, expected) {
		t.Fatalf("expected %+v, got %+v", expected, task)
	}
}

func TestProducer_StoryFollowAfterFailure(t *testing.T) {
	ctx := context.Background()
	p := newProducer(t)

	err := p.StoryFollow(ctx, tasks.ActionFollow, 1, 2, false)
	if err != nil {
		t.Fatal(err)
	}

	queue := p.Queue(tasks.StoryFollowQueue)

	_, err = queue.Fail(ctx, reserve(t, p, tasks.StoryFollowQueue), jobs.Permanent(errors.New("connection refused")))
	if err != nil {
		t.Fatal(err)
	}

	err = p.StoryFollow(ctx, tasks.ActionUnfollow, 1, 2, false)
	if err != nil {
		t.Fatal(err)
	}

	counts, err := queue.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if counts[jobs.Waiting] != 1 || counts[jobs.Failed] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}

	task, err := tasks.DecodeStoryFollowTask(reserve(t, p, tasks.StoryFollowQueue))
	if err != nil {
		t.Fatal(err)
	}

	expected := tasks.Unfollow{Follower: 1, Creator: 2}
	if !reflect.DeepEqual(task, expected) {
		t.Fatalf("expected %+v, got %+v", expected, task)
	}
}

func TestProducer_StoryDistributeIsLIFO(t *testing.T) {
	ctx := context.Background()
	p := newProducer(t)

	for _, id := range []string{"a", "b"} {
		err := p.StoryDistribute(ctx, tasks.StoryDistribute{StoryID: id, Creator: 1, ExpiresAt: 1000})
		if err != nil {
			t.Fatal(err)
		}
	}

	task, err := tasks.DecodeStoryTask(reserve(t, p, tasks.StoryQueue))
	if err != nil {
		t.Fatal(err)
	}

	if task.(tasks.StoryDistribute).StoryID != "b" {
		t.Fatalf("expected newest story first, got %+v", task)
	}
}

func TestProducer_PopularityTransition(t *testing.T) {
	ctx := context.Background()
	p := newProducer(t)

	err := p.PopularityTransition(ctx, 5, tasks.StatusDowngrade)
	if err != nil {
		t.Fatal(err)
	}

	task, err := tasks.DecodePopularityTask(reserve(t, p, tasks.PopularityQueue))
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(task, tasks.Downgrade{Creator: 5}) {
		t.Fatalf("unexpected task %+v", task)
	}
}

func TestProducer_AcceptFollowRequests(t *testing.T) {
	ctx := context.Background()
	p := newProducer(t)

	err := p.AcceptFollowRequests(ctx, 9)
	if err != nil {
		t.Fatal(err)
	}

	job := reserve(t, p, tasks.AccountQueue)
	if job.ID != "accept-follow-requests:9" {
		t.Fatalf("unexpected id %s", job.ID)
	}

	task, err := tasks.DecodeAccountTask(job)
	if err != nil {
		t.Fatal(err)
	}

	if task.(tasks.AcceptFollowRequests).UserID != 9 {
		t.Fatalf("unexpected task %+v", task)
	}
}

func TestDecode_Errors(t *testing.T) {
	var tests = []struct {
		name     string
		job      *jobs.Job
		decode   func(*jobs.Job) error
		expected error
	}{
		{
			"unknown name",
			&jobs.Job{Name: "foo", Data: json.RawMessage(`{}`)},
			func(j *jobs.Job) error { _, err := tasks.DecodeHomeFeedTask(j); return err },
			tasks.ErrUnknownTask,
		},
		{
			"bad json",
			&jobs.Job{Name: tasks.PostFanoutJob, Data: json.RawMessage(`{`)},
			func(j *jobs.Job) error { _, err := tasks.DecodeHomeFeedTask(j); return err },
			tasks.ErrInvalidTask,
		},
		{
			"missing post",
			&jobs.Job{Name: tasks.PostFanoutJob, Data: json.RawMessage(`{"authorId":1}`)},
			func(j *jobs.Job) error { _, err := tasks.DecodeHomeFeedTask(j); return err },
			tasks.ErrInvalidTask,
		},
		{
			"unknown action",
			&jobs.Job{Name: tasks.StoryFollowJob, Data: json.RawMessage(`{"action":"block","loggedInUser":1,"storyCreator":2}`)},
			func(j *jobs.Job) error { _, err := tasks.DecodeStoryFollowTask(j); return err },
			tasks.ErrUnknownTask,
		},
		{
			"unknown status",
			&jobs.Job{Name: tasks.PopularityJob, Data: json.RawMessage(`{"storyCreator":1,"status":"sideways"}`)},
			func(j *jobs.Job) error { _, err := tasks.DecodePopularityTask(j); return err },
			tasks.ErrUnknownTask,
		},
		{
			"missing expiry",
			&jobs.Job{Name: tasks.StoryDistributeJob, Data: json.RawMessage(`{"storyId":"a","storyCreator":1}`)},
			func(j *jobs.Job) error { _, err := tasks.DecodeStoryTask(j); return err },
			tasks.ErrInvalidTask,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.decode(tt.job)
			if errors.Cause(err) != tt.expected {
				t.Fatalf("expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestStoryDistribute_Expiry(t *testing.T) {
	task := tasks.StoryDistribute{ExpiresAt: 1500}

	if !task.Expiry().Equal(time.Unix(1, 500*int64(time.Millisecond))) {
		t.Fatalf("unexpected expiry %s", task.Expiry())
	}
}
