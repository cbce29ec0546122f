package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/titledoctor/pipeline-service/internal/domain/entity"
	"github.com/titledoctor/pipeline-service/internal/domain/port"
)

// fakeRepo is an in-memory job store with the same version-conditional
// write semantics as the real ones.
type fakeRepo struct {
	mu            sync.Mutex
	jobs          map[uuid.UUID]*entity.Job
	conflictNext  bool
	failNextError error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{jobs: make(map[uuid.UUID]*entity.Job)}
}

func cloneJob(j *entity.Job) *entity.Job {
	c := *j
	c.Videos = append([]entity.Video(nil), j.Videos...)
	c.ImprovedTitles = append([]entity.ImprovedTitle(nil), j.ImprovedTitles...)
	return &c
}

func (r *fakeRepo) Create(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *fakeRepo) Update(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNextError != nil {
		err := r.failNextError
		r.failNextError = nil
		return err
	}
	if r.conflictNext {
		r.conflictNext = false
		return port.ErrVersionConflict
	}
	stored, ok := r.jobs[job.ID]
	if !ok {
		return port.ErrJobNotFound
	}
	if stored.Version != job.Version {
		return port.ErrVersionConflict
	}
	job.Version++
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, port.ErrJobNotFound
	}
	return cloneJob(job), nil
}

func (r *fakeRepo) ListStale(_ context.Context, cutoff time.Time) ([]*entity.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stale []*entity.Job
	for _, job := range r.jobs {
		if !job.Terminal() && job.UpdatedAt.Before(cutoff) {
			stale = append(stale, cloneJob(job))
		}
	}
	return stale, nil
}

// put seeds or resets a record, bypassing versioning.
func (r *fakeRepo) put(job *entity.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = cloneJob(job)
}

func (r *fakeRepo) get(id uuid.UUID) *entity.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneJob(r.jobs[id])
}

func (r *fakeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

type emittedEvent struct {
	topic   string
	payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []emittedEvent
}

func (p *fakePublisher) Emit(_ context.Context, topic string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, emittedEvent{topic: topic, payload: payload})
	return nil
}

func (p *fakePublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.topic
	}
	return out
}

func (p *fakePublisher) last() emittedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

type fakeDirectory struct {
	mu        sync.Mutex
	queries   []string
	resolveFn func(query string) (*entity.ChannelRef, error)
	videosFn  func(channelID string, max int) ([]entity.Video, error)
}

func (d *fakeDirectory) ResolveChannel(_ context.Context, query string) (*entity.ChannelRef, error) {
	d.mu.Lock()
	d.queries = append(d.queries, query)
	d.mu.Unlock()
	return d.resolveFn(query)
}

func (d *fakeDirectory) RecentVideos(_ context.Context, channelID string, max int) ([]entity.Video, error) {
	return d.videosFn(channelID, max)
}

type fakeGenerator struct {
	fn func(channelName string, videos []entity.Video) ([]entity.ImprovedTitle, error)
}

func (g *fakeGenerator) ImproveTitles(_ context.Context, channelName string, videos []entity.Video) ([]entity.ImprovedTitle, error) {
	return g.fn(channelName, videos)
}

type sentEmail struct {
	to      string
	subject string
	text    string
}

type fakeMailer struct {
	mu    sync.Mutex
	sends []sentEmail
	id    string
	err   error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, text string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	m.sends = append(m.sends, sentEmail{to: to, subject: subject, text: text})
	m.mu.Unlock()
	if m.id == "" {
		return "email-1", nil
	}
	return m.id, nil
}

func sampleVideos(n int) []entity.Video {
	videos := make([]entity.Video, 0, n)
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		videos = append(videos, entity.Video{
			VideoID:     "vid-" + id,
			Title:       "Title " + id,
			URL:         "https://www.youtube.com/watch?v=vid-" + id,
			PublishedAt: "2026-08-01T00:00:00Z",
			Thumbnail:   "https://i.ytimg.com/vi/vid-" + id + "/default.jpg",
		})
	}
	return videos
}
