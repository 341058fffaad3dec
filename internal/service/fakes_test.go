package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/learnhub/engine/internal/embeddings"
	"github.com/learnhub/engine/internal/huberrors"
	"github.com/learnhub/engine/internal/models"
	pkgembeddings "github.com/learnhub/engine/pkg/embeddings"
)

var errStore = errors.New("store unavailable")

// memVectorStore mirrors the atomic SQL of KnowledgeVectorsRepository in memory.
type memVectorStore struct {
	mu         sync.Mutex
	students   map[[2]uuid.UUID][]float32
	classrooms map[uuid.UUID]*models.ClassroomAggregate
	blendErr   error
	countErr   error
	addErr     error
	adds       int
}

func newMemVectorStore() *memVectorStore {
	return &memVectorStore{
		students:   make(map[[2]uuid.UUID][]float32),
		classrooms: make(map[uuid.UUID]*models.ClassroomAggregate),
	}
}

func (s *memVectorStore) BlendStudentVector(
	_ context.Context, studentID, workspaceID uuid.UUID, vec []float32, oldWeight, newWeight float64,
) error {
	if s.blendErr != nil {
		return s.blendErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := [2]uuid.UUID{studentID, workspaceID}
	if old, ok := s.students[key]; ok {
		s.students[key] = pkgembeddings.Blend(old, vec, oldWeight, newWeight)
	} else {
		s.students[key] = slices.Clone(vec)
	}

	return nil
}

func (s *memVectorStore) student(studentID, workspaceID uuid.UUID) []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.students[[2]uuid.UUID{studentID, workspaceID}]
}

func (s *memVectorStore) GetClassroomStudentCount(_ context.Context, classroomID uuid.UUID) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	agg, ok := s.classrooms[classroomID]
	if !ok {
		return 0, huberrors.NewNotFoundError("classroom aggregate", "classroom aggregate not found")
	}

	return agg.StudentCount, nil
}

func (s *memVectorStore) GetClassroomAggregate(_ context.Context, classroomID uuid.UUID) (*models.ClassroomAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agg, ok := s.classrooms[classroomID]
	if !ok {
		return nil, huberrors.NewNotFoundError("classroom aggregate", "classroom aggregate not found")
	}

	cp := *agg
	cp.SumVector = slices.Clone(agg.SumVector)

	return &cp, nil
}

func (s *memVectorStore) AddToClassroomAggregate(_ context.Context, classroomID uuid.UUID, delta []float32) (int64, error) {
	if s.addErr != nil {
		return 0, s.addErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.adds++

	agg, ok := s.classrooms[classroomID]
	if !ok {
		s.classrooms[classroomID] = &models.ClassroomAggregate{
			ClassroomID: classroomID, SumVector: slices.Clone(delta), StudentCount: 1,
		}

		return 1, nil
	}

	agg.SumVector = pkgembeddings.Blend(agg.SumVector, delta, 1, 1)
	agg.StudentCount++

	return agg.StudentCount, nil
}

// memMasteryStore is a versioned in-memory mastery table. lose makes the next N writes
// report that another writer got there first, after applying competing, which simulates it.
type memMasteryStore struct {
	mu        sync.Mutex
	records   map[[2]uuid.UUID]*models.MasteryRecord
	lose      int
	competing func(rec *models.MasteryRecord)
	failTopic uuid.UUID
	writes    int
}

func newMemMasteryStore() *memMasteryStore {
	return &memMasteryStore{records: make(map[[2]uuid.UUID]*models.MasteryRecord)}
}

func cloneRecord(rec *models.MasteryRecord) *models.MasteryRecord {
	cp := *rec
	cp.Trend = slices.Clone(rec.Trend)

	return &cp
}

func (s *memMasteryStore) put(rec *models.MasteryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Version == 0 {
		rec.Version = 1
	}

	s.records[[2]uuid.UUID{rec.StudentID, rec.TopicID}] = cloneRecord(rec)
}

func (s *memMasteryStore) get(studentID, topicID uuid.UUID) *models.MasteryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[[2]uuid.UUID{studentID, topicID}]
	if !ok {
		return nil
	}

	return cloneRecord(rec)
}

func (s *memMasteryStore) Get(_ context.Context, studentID, topicID uuid.UUID) (*models.MasteryRecord, error) {
	if topicID == s.failTopic {
		return nil, errStore
	}

	if rec := s.get(studentID, topicID); rec != nil {
		return rec, nil
	}

	return nil, huberrors.NewNotFoundError(huberrors.ResourceMastery, "")
}

// interfere reports whether this write loses the race, applying the competing write first.
func (s *memMasteryStore) interfere(studentID, topicID uuid.UUID) bool {
	if s.lose == 0 {
		return false
	}

	s.lose--

	key := [2]uuid.UUID{studentID, topicID}

	rec, ok := s.records[key]
	if !ok {
		rec = models.NewMasteryRecord(studentID, topicID)
	}

	if s.competing != nil {
		s.competing(rec)
	}

	rec.Version++
	s.records[key] = rec

	return true
}

func (s *memMasteryStore) Create(_ context.Context, rec *models.MasteryRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interfere(rec.StudentID, rec.TopicID) {
		return false, nil
	}

	key := [2]uuid.UUID{rec.StudentID, rec.TopicID}
	if _, ok := s.records[key]; ok {
		return false, nil
	}

	rec.Version = 1
	s.records[key] = cloneRecord(rec)
	s.writes++

	return true, nil
}

func (s *memMasteryStore) UpdateIfVersion(_ context.Context, rec *models.MasteryRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interfere(rec.StudentID, rec.TopicID) {
		return false, nil
	}

	key := [2]uuid.UUID{rec.StudentID, rec.TopicID}

	stored, ok := s.records[key]
	if !ok || stored.Version != rec.Version {
		return false, nil
	}

	rec.Version++
	s.records[key] = cloneRecord(rec)
	s.writes++

	return true, nil
}

type fakeTopicSource struct {
	mu    sync.Mutex
	refs  map[uuid.UUID][]models.TopicReferenceVector
	err   error
	loads int
}

func (f *fakeTopicSource) ListReferenceVectorsBySubject(_ context.Context, subjectID uuid.UUID) ([]models.TopicReferenceVector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.loads++

	if f.err != nil {
		return nil, f.err
	}

	return f.refs[subjectID], nil
}

// fakeEmbedder returns vectors[text] (or a mock vector) and counts calls.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	err     error
	calls   int
	texts   []string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, task embeddings.TaskType) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.texts = append(f.texts, text)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	if v, ok := f.vectors[text]; ok {
		return slices.Clone(v), nil
	}

	return embeddings.NewMockClientWithDimensions(8).Embed(ctx, text, task)
}

type fakeInteractions struct {
	mu       sync.Mutex
	entries  []*models.InteractionEntry
	samples  []*models.ClassroomInteractionSample
	entryErr error
	mergeErr error
}

func (f *fakeInteractions) AppendStudentEntry(_ context.Context, entry *models.InteractionEntry) error {
	if f.entryErr != nil {
		return f.entryErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries = append(f.entries, entry)

	return nil
}

func (f *fakeInteractions) MergeClassroomSample(
	_ context.Context, sample *models.ClassroomInteractionSample,
) (*models.ClassroomInteractionAggregate, error) {
	if f.mergeErr != nil {
		return nil, f.mergeErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.samples = append(f.samples, sample)

	return &models.ClassroomInteractionAggregate{ClassroomID: sample.ClassroomID, EntryCount: int64(len(f.samples))}, nil
}

type fakeHierarchy struct {
	resolveFn   func(ctx context.Context, topicID uuid.UUID) (*models.TopicHierarchy, error)
	classroomFn func(ctx context.Context, subjectID uuid.UUID) (*uuid.UUID, error)
	resolves    int
	lookups     int
}

func (f *fakeHierarchy) ResolveHierarchy(ctx context.Context, topicID uuid.UUID) (*models.TopicHierarchy, error) {
	f.resolves++

	if f.resolveFn == nil {
		return nil, huberrors.TopicNotFound(topicID.String())
	}

	return f.resolveFn(ctx, topicID)
}

func (f *fakeHierarchy) GetSubjectClassroom(ctx context.Context, subjectID uuid.UUID) (*uuid.UUID, error) {
	f.lookups++

	if f.classroomFn == nil {
		return nil, huberrors.SubjectNotFound(subjectID.String())
	}

	return f.classroomFn(ctx, subjectID)
}

type fakeQuizStore struct {
	quizzes   map[uuid.UUID]*models.Quiz
	questions map[uuid.UUID]*models.Question
	saved     []*models.QuizResult
	saveErr   error
}

func newFakeQuizStore() *fakeQuizStore {
	return &fakeQuizStore{
		quizzes:   make(map[uuid.UUID]*models.Quiz),
		questions: make(map[uuid.UUID]*models.Question),
	}
}

func (f *fakeQuizStore) GetQuiz(_ context.Context, id uuid.UUID) (*models.Quiz, error) {
	q, ok := f.quizzes[id]
	if !ok {
		return nil, huberrors.QuizNotFound(id.String())
	}

	return q, nil
}

func (f *fakeQuizStore) GetQuestionsByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Question, error) {
	out := make(map[uuid.UUID]*models.Question)

	for _, id := range ids {
		if q, ok := f.questions[id]; ok {
			out[id] = q
		}
	}

	return out, nil
}

func (f *fakeQuizStore) SaveResult(_ context.Context, result *models.QuizResult) error {
	if f.saveErr != nil {
		return f.saveErr
	}

	quiz, ok := f.quizzes[result.QuizID]
	if !ok {
		return huberrors.QuizNotFound(result.QuizID.String())
	}

	if quiz.Submitted() {
		return huberrors.NewConflictError("quiz already submitted")
	}

	at := result.GradedAt
	quiz.SubmittedAt = &at
	quiz.Result = result
	f.saved = append(f.saved, result)

	return nil
}

type fakeInserter struct {
	mu    sync.Mutex
	args  []river.JobArgs
	opts  []*river.InsertOpts
	err   error
	dupes bool
}

func (f *fakeInserter) Insert(_ context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	f.args = append(f.args, args)
	f.opts = append(f.opts, opts)

	return &rivertype.JobInsertResult{
		Job:                      &rivertype.JobRow{ID: int64(len(f.args)), Kind: args.Kind()},
		UniqueSkippedAsDuplicate: f.dupes,
	}, nil
}

type recordingPipelineMetrics struct {
	mu       sync.Mutex
	enqueued map[string]int64
	errors   map[string]int
	steps    map[string]string
	sampling []bool
	mastery  map[string]int
	statuses []string
}

func newRecordingPipelineMetrics() *recordingPipelineMetrics {
	return &recordingPipelineMetrics{
		enqueued: make(map[string]int64),
		errors:   make(map[string]int),
		steps:    make(map[string]string),
		mastery:  make(map[string]int),
	}
}

func (r *recordingPipelineMetrics) RecordJobsEnqueued(_ context.Context, kind string, n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enqueued[kind] += n
}

func (r *recordingPipelineMetrics) RecordEnqueueError(_ context.Context, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors[kind]++
}

func (r *recordingPipelineMetrics) RecordStepOutcome(_ context.Context, step, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps[step] = outcome
}

func (r *recordingPipelineMetrics) RecordPipelineDuration(_ context.Context, _ time.Duration, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *recordingPipelineMetrics) RecordSamplingDecision(_ context.Context, applied bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sampling = append(r.sampling, applied)
}

func (r *recordingPipelineMetrics) RecordSplashTopics(context.Context, int) {}

func (r *recordingPipelineMetrics) RecordMasteryUpdate(_ context.Context, path, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mastery[path+"/"+status]++
}

func (r *recordingPipelineMetrics) SetRiverQueueDepth(int) {}

type recordingCacheMetrics struct {
	hits, misses, invalidations  int
	loadedTopics, missingVectors int
}

func (r *recordingCacheMetrics) RecordLookup(_ context.Context, hit bool) {
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func (r *recordingCacheMetrics) RecordSubjectLoad(_ context.Context, topics, missingVectors int) {
	r.loadedTopics += topics
	r.missingVectors += missingVectors
}

func (r *recordingCacheMetrics) RecordInvalidation(context.Context) { r.invalidations++ }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time {
		t = t.Add(time.Second)

		return t
	}
}

func idPtr(id uuid.UUID) *uuid.UUID { return &id }

func floatPtr(f float64) *float64 { return &f }

func newAggregate(classroomID uuid.UUID, count int64) *models.ClassroomAggregate {
	return &models.ClassroomAggregate{ClassroomID: classroomID, SumVector: []float32{0, 0}, StudentCount: count}
}
