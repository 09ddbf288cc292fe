package handler

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/videditor/jobrunner/internal/collab"
	"github.com/videditor/jobrunner/internal/domain"
	"github.com/videditor/jobrunner/internal/pkg/dbctx"
)

// fakeObjectStore records every Download/Upload call; Upload can be
// scripted to fail for a specific key to exercise per-clip isolation.
type fakeObjectStore struct {
	mu          sync.Mutex
	downloads   []string
	uploads     []string
	failUploads map[string]error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{failUploads: make(map[string]error)}
}

func (f *fakeObjectStore) Download(ctx context.Context, bucket, key, destinationPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, key)
	return nil
}

func (f *fakeObjectStore) Upload(ctx context.Context, bucket, key, sourcePath, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, key)
	if err, ok := f.failUploads[key]; ok {
		return err
	}
	return nil
}

type fakeMedia struct {
	mu       sync.Mutex
	duration float64

	failExtractClip              map[string]error
	failExtractClipForSecondCall bool
	extractClipCalls             int
}

func newFakeMedia(duration float64) *fakeMedia {
	return &fakeMedia{duration: duration, failExtractClip: make(map[string]error)}
}

func (f *fakeMedia) Probe(ctx context.Context, videoPath string) (float64, error) {
	return f.duration, nil
}

func (f *fakeMedia) ExtractThumbnail(ctx context.Context, videoPath, outputPath string, timestampSeconds float64) error {
	return nil
}

func (f *fakeMedia) ExtractClip(ctx context.Context, videoPath, outputPath string, startSeconds, endSeconds float64) error {
	f.mu.Lock()
	f.extractClipCalls++
	call := f.extractClipCalls
	f.mu.Unlock()
	if f.failExtractClipForSecondCall && call == 2 {
		return errClipExtraction
	}
	if err, ok := f.failExtractClip[outputPath]; ok {
		return err
	}
	return nil
}

var _ collab.MediaToolchain = (*fakeMedia)(nil)
var _ collab.ObjectStore = (*fakeObjectStore)(nil)

type fakeTranscriber struct {
	transcript collab.Transcript
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, videoPath string) (collab.Transcript, error) {
	return f.transcript, nil
}

var _ collab.Transcriber = (*fakeTranscriber)(nil)

type fakeTextGenerator struct {
	suggestions []collab.ShortSuggestion
}

func (f *fakeTextGenerator) SuggestShorts(ctx context.Context, segments []domain.Segment, shortsCount int, customPrompt string) ([]collab.ShortSuggestion, error) {
	return f.suggestions, nil
}

var _ collab.TextGenerator = (*fakeTextGenerator)(nil)

// fakeProjectRepo is an in-memory ProjectRepo recording every status
// transition in order, for workflow-chain assertions.
type fakeProjectRepo struct {
	mu        sync.Mutex
	project   *domain.Project
	statuses  []domain.ProjectStatus
	thumbnail string
	duration  float64
}

func (r *fakeProjectRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Project, error) {
	return r.project, nil
}

func (r *fakeProjectRepo) UpdateStatus(dbc dbctx.Context, id uuid.UUID, status domain.ProjectStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
	if r.project != nil {
		r.project.Status = string(status)
	}
	return nil
}

func (r *fakeProjectRepo) UpdateThumbnail(dbc dbctx.Context, id uuid.UUID, thumbnailURL string, status domain.ProjectStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.thumbnail = thumbnailURL
	r.statuses = append(r.statuses, status)
	return nil
}

func (r *fakeProjectRepo) UpdateDuration(dbc dbctx.Context, id uuid.UUID, durationSeconds float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.duration = durationSeconds
	return nil
}

type fakeTranscriptionRepo struct {
	mu      sync.Mutex
	created []*domain.Transcription
	byProj  map[uuid.UUID]*domain.Transcription
}

func newFakeTranscriptionRepo() *fakeTranscriptionRepo {
	return &fakeTranscriptionRepo{byProj: make(map[uuid.UUID]*domain.Transcription)}
}

func (r *fakeTranscriptionRepo) Create(dbc dbctx.Context, t *domain.Transcription) (*domain.Transcription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	r.created = append(r.created, t)
	r.byProj[t.ProjectID] = t
	return t, nil
}

func (r *fakeTranscriptionRepo) GetByProjectID(dbc dbctx.Context, projectID uuid.UUID) (*domain.Transcription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byProj[projectID], nil
}

type fakeShortRepo struct {
	mu        sync.Mutex
	created   []*domain.Short
	completed map[uuid.UUID]bool
	errored   map[uuid.UUID]string
}

func newFakeShortRepo() *fakeShortRepo {
	return &fakeShortRepo{completed: make(map[uuid.UUID]bool), errored: make(map[uuid.UUID]string)}
}

func (r *fakeShortRepo) Create(dbc dbctx.Context, s *domain.Short) (*domain.Short, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.created = append(r.created, s)
	return s, nil
}

func (r *fakeShortRepo) MarkCompleted(dbc dbctx.Context, id uuid.UUID, outputObjectKey, thumbnailURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed[id] = true
	return nil
}

func (r *fakeShortRepo) MarkError(dbc dbctx.Context, id uuid.UUID, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errored[id] = errorMessage
	return nil
}

// fakeJobRepo backs runtime.Context in handler tests: only EnqueueSuccessor
// and MarkSucceeded/MarkFailed are exercised.
type fakeJobRepo struct {
	mu            sync.Mutex
	enqueued      []*domain.Job
	succeeded     bool
	succeedResult any
	failedWith    string
}

func (f *fakeJobRepo) Claim(dbc dbctx.Context, n int) ([]*domain.Job, error) { return nil, nil }

func (f *fakeJobRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Job, error) { return nil, nil }

func (f *fakeJobRepo) MarkSucceeded(dbc dbctx.Context, id uuid.UUID, result any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.succeeded = true
	f.succeedResult = result
	return true, nil
}

func (f *fakeJobRepo) MarkFailed(ctx dbctx.Context, id uuid.UUID, errorMessage string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failedWith = errorMessage
	return true, nil
}

func (f *fakeJobRepo) EnqueueSuccessor(dbc dbctx.Context, job *domain.Job) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, job)
	return job, nil
}
