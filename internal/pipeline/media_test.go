package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"sinkbot/internal/domain"
	"sinkbot/internal/transform"
)

type fakePlatform struct {
	content    string
	contentErr error
	replies    [][]domain.Message
	replyErr   error
}

func (f *fakePlatform) Reply(_ context.Context, _ string, msgs []domain.Message) error {
	f.replies = append(f.replies, msgs)
	return f.replyErr
}

func (f *fakePlatform) GetContent(_ context.Context, _ string) (io.ReadCloser, error) {
	if f.contentErr != nil {
		return nil, f.contentErr
	}
	return io.NopCloser(strings.NewReader(f.content)), nil
}

func (f *fakePlatform) GetProfile(_ context.Context, _ string) (*domain.Profile, error) {
	return nil, errors.New("not implemented")
}

func (f *fakePlatform) LeaveGroup(_ context.Context, _ string) error { return nil }
func (f *fakePlatform) LeaveRoom(_ context.Context, _ string) error  { return nil }

type fakeStore struct {
	saves     []string // extensions, in order
	allocates []string
	saveErr   error
}

func (f *fakeStore) Save(_ context.Context, ext string, r io.Reader) (domain.DownloadedContent, error) {
	if f.saveErr != nil {
		return domain.DownloadedContent{}, f.saveErr
	}
	io.Copy(io.Discard, r)
	f.saves = append(f.saves, ext)
	name := "blob." + ext
	return domain.DownloadedContent{
		Path: "/tmp/" + name,
		URI:  "https://bot.example.com/downloaded/" + name,
	}, nil
}

func (f *fakeStore) Allocate(_ context.Context, ext string) (domain.DownloadedContent, error) {
	f.allocates = append(f.allocates, ext)
	name := "preview." + ext
	return domain.DownloadedContent{
		Path: "/tmp/" + name,
		URI:  "https://bot.example.com/downloaded/" + name,
	}, nil
}

type fakeRunner struct {
	resizes  int
	extracts int
	result   transform.Result
}

func (f *fakeRunner) Resize(_ context.Context, _, _, _ string) transform.Result {
	f.resizes++
	return f.result
}

func (f *fakeRunner) ExtractFrame(_ context.Context, _, _ string) transform.Result {
	f.extracts++
	return f.result
}

func newTestPipeline(platform *fakePlatform, store *fakeStore, runner *fakeRunner) *Pipeline {
	return New(Config{
		Platform: platform,
		Store:    store,
		Runner:   runner,
		Logger:   slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	})
}

func TestHandle_Image(t *testing.T) {
	platform := &fakePlatform{content: "image bytes"}
	store := &fakeStore{}
	runner := &fakeRunner{}
	p := newTestPipeline(platform, store, runner)

	if err := p.Handle(context.Background(), "tok", "msg-1", KindImage); err != nil {
		t.Fatal(err)
	}

	if len(store.saves) != 1 || store.saves[0] != "jpg" {
		t.Errorf("expected exactly one jpg save, got %v", store.saves)
	}
	if runner.resizes != 1 {
		t.Errorf("expected exactly one resize, got %d", runner.resizes)
	}
	if runner.extracts != 0 {
		t.Errorf("unexpected frame extraction for image")
	}
	if len(platform.replies) != 1 || len(platform.replies[0]) != 1 {
		t.Fatalf("expected one reply with one message, got %v", platform.replies)
	}
	img, ok := platform.replies[0][0].(domain.ImageMessage)
	if !ok {
		t.Fatalf("expected ImageMessage, got %T", platform.replies[0][0])
	}
	if img.OriginalURL == "" || img.PreviewURL == "" {
		t.Errorf("incomplete image message: %#v", img)
	}
	if img.PreviewURL == img.OriginalURL {
		t.Error("preview should reference the derived thumbnail, not the original")
	}
}

func TestHandle_FetchFailure(t *testing.T) {
	platform := &fakePlatform{contentErr: errors.New("connection reset")}
	store := &fakeStore{}
	p := newTestPipeline(platform, store, &fakeRunner{})

	err := p.Handle(context.Background(), "tok", "msg-1", KindVideo)
	var terr *domain.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError, got %v", err)
	}

	if len(store.saves) != 0 {
		t.Error("store must not be called when the fetch fails")
	}
	if len(platform.replies) != 1 {
		t.Fatalf("expected one best-effort text reply, got %d", len(platform.replies))
	}
	txt, ok := platform.replies[0][0].(domain.TextMessage)
	if !ok {
		t.Fatalf("expected TextMessage, got %T", platform.replies[0][0])
	}
	if !strings.Contains(txt.Text, "Cannot get image:") || !strings.Contains(txt.Text, "connection reset") {
		t.Errorf("failure reply missing cause: %q", txt.Text)
	}
}

func TestHandle_TransformFailureSendsNoReply(t *testing.T) {
	platform := &fakePlatform{content: "image bytes"}
	runner := &fakeRunner{result: transform.Result{Status: transform.StatusToolFailed, ExitCode: 1}}
	p := newTestPipeline(platform, &fakeStore{}, runner)

	err := p.Handle(context.Background(), "tok", "msg-1", KindImage)
	var terr *domain.TransformError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransformError, got %v", err)
	}
	if len(platform.replies) != 0 {
		t.Error("no reply may be sent when the transform fails")
	}
}

func TestHandle_StorageFailureAborts(t *testing.T) {
	platform := &fakePlatform{content: "bytes"}
	store := &fakeStore{saveErr: &domain.StorageError{Op: "write", Err: errors.New("disk full")}}
	p := newTestPipeline(platform, store, &fakeRunner{})

	err := p.Handle(context.Background(), "tok", "msg-1", KindAudio)
	var serr *domain.StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if len(platform.replies) != 0 {
		t.Error("storage failure must abort without a reply")
	}
}

func TestHandle_Audio(t *testing.T) {
	platform := &fakePlatform{content: "audio bytes"}
	store := &fakeStore{}
	runner := &fakeRunner{}
	p := newTestPipeline(platform, store, runner)

	if err := p.Handle(context.Background(), "tok", "msg-1", KindAudio); err != nil {
		t.Fatal(err)
	}

	if len(store.saves) != 1 || store.saves[0] != "mp4" {
		t.Errorf("expected one mp4 save, got %v", store.saves)
	}
	if runner.resizes != 0 || runner.extracts != 0 {
		t.Error("audio must not invoke the transform runner")
	}
	audio, ok := platform.replies[0][0].(domain.AudioMessage)
	if !ok {
		t.Fatalf("expected AudioMessage, got %T", platform.replies[0][0])
	}
	if audio.DurationMillis != audioDurationMillis {
		t.Errorf("expected placeholder duration %d, got %d", audioDurationMillis, audio.DurationMillis)
	}
}

func TestHandle_Video(t *testing.T) {
	platform := &fakePlatform{content: "video bytes"}
	store := &fakeStore{}
	runner := &fakeRunner{}
	p := newTestPipeline(platform, store, runner)

	if err := p.Handle(context.Background(), "tok", "msg-1", KindVideo); err != nil {
		t.Fatal(err)
	}

	if len(store.saves) != 1 || store.saves[0] != "mp4" {
		t.Errorf("expected one mp4 save, got %v", store.saves)
	}
	if runner.extracts != 1 {
		t.Errorf("expected exactly one frame extraction, got %d", runner.extracts)
	}
	video, ok := platform.replies[0][0].(domain.VideoMessage)
	if !ok {
		t.Fatalf("expected VideoMessage, got %T", platform.replies[0][0])
	}
	if video.PreviewURL == video.OriginalURL {
		t.Error("video preview must reference the extracted frame")
	}
	if len(store.allocates) != 1 || store.allocates[0] != "jpg" {
		t.Errorf("expected one jpg allocation for the frame, got %v", store.allocates)
	}
}

func TestKind_Ext(t *testing.T) {
	if KindImage.ext() != "jpg" {
		t.Errorf("image ext: %s", KindImage.ext())
	}
	if KindAudio.ext() != "mp4" {
		t.Errorf("audio ext: %s", KindAudio.ext())
	}
	if KindVideo.ext() != "mp4" {
		t.Errorf("video ext: %s", KindVideo.ext())
	}
}
