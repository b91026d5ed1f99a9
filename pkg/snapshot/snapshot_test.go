package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/vango-dev/signaltower/pkg/tower"
)

func TestTake(t *testing.T) {
	r := tower.New()
	msg := tower.MustGet[string](r, "msg", tower.WithLogLevel(tower.LevelPayload))
	tower.MustGet[bool](r, "focus")
	fn := tower.MustGet[func()](r, "callbacks")

	msg.Subscribe(func(string) {})
	msg.Dispatch("hello")
	fn.Dispatch(func() {})

	snap := Take(r)

	if _, err := uuid.Parse(snap.ID); err != nil {
		t.Errorf("ID %q is not a UUID: %v", snap.ID, err)
	}
	if snap.TakenAt.IsZero() {
		t.Error("TakenAt should be set")
	}
	if len(snap.Channels) != 3 {
		t.Fatalf("expected 3 channels, got %d", len(snap.Channels))
	}
	if snap.Channels[0].Name != "callbacks" || snap.Channels[2].Name != "msg" {
		t.Errorf("channels not sorted: %v, %v", snap.Channels[0].Name, snap.Channels[2].Name)
	}

	got, ok := snap.Channel("msg")
	if !ok {
		t.Fatal("msg channel missing")
	}
	if string(got.Latest) != `"hello"` {
		t.Errorf("Latest = %s, want %q", got.Latest, `"hello"`)
	}
	if got.Subscribers != 1 || got.LogLevel != tower.LevelPayload || got.Dispatches != 1 {
		t.Errorf("unexpected info: %+v", got.ChannelInfo)
	}

	focus, _ := snap.Channel("focus")
	if focus.Latest != nil || focus.HasLatest {
		t.Errorf("never-dispatched channel should have no latest: %+v", focus)
	}

	callbacks, _ := snap.Channel("callbacks")
	if callbacks.LatestError == "" || callbacks.Latest != nil {
		t.Errorf("unencodable payload should report an error: %+v", callbacks)
	}

	if _, ok := snap.Channel("missing"); ok {
		t.Error("unexpected channel")
	}
}

func TestTakeUniqueIDs(t *testing.T) {
	r := tower.New()
	if Take(r).ID == Take(r).ID {
		t.Error("expected distinct snapshot IDs")
	}
}

func TestSnapshotJSON(t *testing.T) {
	r := tower.New()
	tower.MustGet[int](r, "count").Dispatch(0)

	data, err := json.Marshal(Take(r))
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if !strings.Contains(string(data), `"name":"count"`) || !strings.Contains(string(data), `"latest":0`) {
		t.Errorf("unexpected JSON: %s", data)
	}
}

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3Archiver(t *testing.T) {
	r := tower.New()
	tower.MustGet[string](r, "msg").Dispatch("hi")
	snap := Take(r)

	putter := &fakePutter{}
	archiver := NewS3Archiver(putter, "diag", "tower/snapshots")

	location, err := archiver.Archive(context.Background(), snap)
	if err != nil {
		t.Fatalf("Archive error: %v", err)
	}

	wantKey := "tower/snapshots/" + snap.ID + ".json"
	if location != "s3://diag/"+wantKey {
		t.Errorf("location = %q, want %q", location, "s3://diag/"+wantKey)
	}
	if aws.ToString(putter.input.Bucket) != "diag" || aws.ToString(putter.input.Key) != wantKey {
		t.Errorf("unexpected target %s/%s", aws.ToString(putter.input.Bucket), aws.ToString(putter.input.Key))
	}
	if aws.ToString(putter.input.ContentType) != "application/json" {
		t.Errorf("ContentType = %q", aws.ToString(putter.input.ContentType))
	}
	if putter.input.Metadata["snapshot-id"] != snap.ID {
		t.Errorf("metadata = %v", putter.input.Metadata)
	}

	var decoded Snapshot
	if err := json.Unmarshal(putter.body, &decoded); err != nil {
		t.Fatalf("uploaded body is not a snapshot: %v", err)
	}
	if decoded.ID != snap.ID || len(decoded.Channels) != 1 {
		t.Errorf("unexpected uploaded snapshot: %+v", decoded)
	}
}

func TestS3ArchiverError(t *testing.T) {
	cause := errors.New("access denied")
	archiver := NewS3Archiver(&fakePutter{err: cause}, "diag", "")

	_, err := archiver.Archive(context.Background(), Take(tower.New()))
	if !errors.Is(err, cause) {
		t.Errorf("expected wrapped cause, got %v", err)
	}
}

func TestS3ArchiverKeyWithoutPrefix(t *testing.T) {
	archiver := NewS3Archiver(&fakePutter{}, "diag", "")
	snap := Snapshot{ID: "abc"}
	if got := archiver.Key(snap); got != "abc.json" {
		t.Errorf("Key = %q, want %q", got, "abc.json")
	}
}

func TestEnvCredentials(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	if _, err := envCredentials(context.Background()); err == nil {
		t.Error("expected error without credentials")
	}

	t.Setenv("AWS_ACCESS_KEY_ID", "AKID")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	creds, err := envCredentials(context.Background())
	if err != nil {
		t.Fatalf("envCredentials error: %v", err)
	}
	if creds.AccessKeyID != "AKID" {
		t.Errorf("AccessKeyID = %q", creds.AccessKeyID)
	}
}

var _ Archiver = (*S3Archiver)(nil)
var _ ObjectPutter = (*s3.Client)(nil)
