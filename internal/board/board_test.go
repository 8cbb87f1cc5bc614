package board

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/filter"
	"taskboard/internal/models"
	"taskboard/internal/status"
	"taskboard/internal/storage/sqlite"
)

// countingStore records the writes that reach the real store.
type countingStore struct {
	*sqlite.Store

	mu             sync.Mutex
	statusWrites   int
	priorityWrites int
	beforeList     func()
}

func (c *countingStore) UpdateTaskStatus(ctx context.Context, userID, id string, s models.TaskStatus) error {
	c.mu.Lock()
	c.statusWrites++
	c.mu.Unlock()
	return c.Store.UpdateTaskStatus(ctx, userID, id, s)
}

func (c *countingStore) UpdateTaskPriority(ctx context.Context, userID, id string, p models.Priority) error {
	c.mu.Lock()
	c.priorityWrites++
	c.mu.Unlock()
	return c.Store.UpdateTaskPriority(ctx, userID, id, p)
}

func (c *countingStore) ListTasks(ctx context.Context, userID, projectID string) ([]models.Task, error) {
	c.mu.Lock()
	hook := c.beforeList
	c.beforeList = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
	return c.Store.ListTasks(ctx, userID, projectID)
}

type fakeRecorder struct {
	mu    sync.Mutex
	stats []status.Stats
	opens []status.OpenAction
}

func (r *fakeRecorder) ObserveStats(s status.Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = append(r.stats, s)
}

func (r *fakeRecorder) ObserveOpen(a status.OpenAction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opens = append(r.opens, a)
}

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, cfg Config) (*Service, *countingStore, *fakeRecorder) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "board.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	counting := &countingStore{Store: store}
	rec := &fakeRecorder{}
	svc, err := New(counting, nil, cfg, WithRecorder(rec), WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return svc, counting, rec
}

func seedTask(t *testing.T, svc *Service, userID string, st models.TaskStatus, pr models.Priority) (models.Project, models.Task) {
	t.Helper()
	ctx := context.Background()
	p, err := svc.CreateProject(ctx, userID, models.Project{Name: "board"})
	require.NoError(t, err)
	task, err := svc.CreateTask(ctx, userID, p.ID, models.Task{Title: "card", Status: st, Priority: pr})
	require.NoError(t, err)
	return p, task
}

func TestNewRejectsInvalidOpenedStatus(t *testing.T) {
	_, err := New(nil, nil, Config{OpenedStatus: models.TaskDone})
	assert.Error(t, err)

	svc, err := New(nil, nil, Config{})
	require.NoError(t, err)
	assert.Equal(t, models.TaskInProgress, svc.cfg.OpenedStatus)
	assert.Equal(t, status.DefaultRecentLimit, svc.cfg.RecentLimit)
}

func TestOpenUnreadPersistsOnce(t *testing.T) {
	ctx := context.Background()
	svc, store, rec := newTestService(t, Config{})
	_, task := seedTask(t, svc, "u1", models.TaskUnread, models.PriorityLow)

	res, err := svc.OpenTask(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, status.ActionPersistAndOpen, res.Action)
	assert.Equal(t, models.TaskInProgress, res.Task.Status)
	assert.Equal(t, 1, store.statusWrites)

	stored, err := store.GetTask(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskInProgress, stored.Status)

	// Opening again is a plain open.
	res, err = svc.OpenTask(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, status.ActionOpen, res.Action)
	assert.Equal(t, 1, store.statusWrites)
	assert.Equal(t, []status.OpenAction{status.ActionPersistAndOpen, status.ActionOpen}, rec.opens)
}

func TestOpenUsesConfiguredStatus(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, Config{OpenedStatus: models.TaskWaitApprove})
	_, task := seedTask(t, svc, "u1", models.TaskUnread, models.PriorityLow)

	res, err := svc.OpenTask(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskWaitApprove, res.Task.Status)
}

func TestOpenRejectedAsksToDelete(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t, Config{})
	_, task := seedTask(t, svc, "u1", models.TaskRejected, models.PriorityHigh)

	res, err := svc.OpenTask(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, status.ActionConfirmDelete, res.Action)
	assert.Equal(t, models.TaskRejected, res.Task.Status)
	assert.Zero(t, store.statusWrites)

	deleted, err := svc.ConfirmDelete(ctx, "u1", task.ID, false)
	require.NoError(t, err)
	assert.False(t, deleted)
	got, err := svc.Task(ctx, "u1", task.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	deleted, err = svc.ConfirmDelete(ctx, "u1", task.ID, true)
	require.NoError(t, err)
	assert.True(t, deleted)
	got, err = svc.Task(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOpenMissingTask(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})
	_, err := svc.OpenTask(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDropTask(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t, Config{})
	_, task := seedTask(t, svc, "u1", models.TaskInProgress, models.PriorityLow)

	res, err := svc.DropTask(ctx, "u1", task.ID, models.PriorityLow)
	require.NoError(t, err)
	assert.False(t, res.Moved)
	assert.Zero(t, store.priorityWrites)

	res, err = svc.DropTask(ctx, "u1", task.ID, models.PriorityHigh)
	require.NoError(t, err)
	assert.True(t, res.Moved)
	assert.Equal(t, models.PriorityHigh, res.Task.Priority)
	assert.Equal(t, 1, store.priorityWrites)

	_, err = svc.DropTask(ctx, "u1", task.ID, "Someday")
	assert.ErrorIs(t, err, models.ErrInvalidPriority)
	assert.Equal(t, 1, store.priorityWrites)
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	svc, _, rec := newTestService(t, Config{RecentLimit: 2})

	for _, p := range []models.Project{
		{Name: "Apollo", ProjectStatus: models.ProjectInProgress, ProjectDueDate: "2024-01-01"},
		{Name: "Zeus", ProjectStatus: models.ProjectSuccess},
		{Name: "Hermes", ProjectStatus: models.ProjectInProgress, ProjectDueDate: models.DueDateLTS},
	} {
		_, err := svc.CreateProject(ctx, "u1", p)
		require.NoError(t, err)
	}
	_, err := svc.CreateProject(ctx, "u2", models.Project{Name: "Apollo elsewhere"})
	require.NoError(t, err)

	d, err := svc.Dashboard(ctx, "u1", filter.Query{Term: "apo"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Total)
	assert.Equal(t, 1, d.FilteredCount)
	require.Len(t, d.Projects, 1)
	assert.Equal(t, "Apollo", d.Projects[0].Name)
	assert.Len(t, d.Recent, 2)
	assert.Equal(t, status.Stats{Total: 3, Ongoing: 2, Completed: 1, Overdue: 1}, d.Stats)
	require.Len(t, rec.stats, 1)

	views, err := svc.Projects(ctx, "u1", filter.Query{Status: string(models.ProjectInProgress)})
	require.NoError(t, err)
	require.Len(t, views, 2)
	overdue := map[string]bool{}
	for _, v := range views {
		overdue[v.Name] = v.Overdue
	}
	assert.Equal(t, map[string]bool{"Apollo": true, "Hermes": false}, overdue)
}

func TestProjectBoardGroupsTasks(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, Config{})
	p, _ := seedTask(t, svc, "u1", models.TaskUnread, models.PriorityUrgent)
	_, err := svc.CreateTask(ctx, "u1", p.ID, models.Task{Title: "other", Priority: models.PriorityLow})
	require.NoError(t, err)

	b, err := svc.ProjectBoard(ctx, "u1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, b.Project.ID)
	assert.Len(t, b.Buckets.Urgent, 1)
	assert.Len(t, b.Buckets.Low, 1)
	assert.Empty(t, b.Buckets.Medium)
	assert.Equal(t, 2, b.Buckets.Len())

	_, err = svc.ProjectBoard(ctx, "u1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProjectBoardDiscardsSupersededFetch(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t, Config{})
	first, _ := seedTask(t, svc, "u1", models.TaskUnread, models.PriorityLow)
	second, _ := seedTask(t, svc, "u1", models.TaskUnread, models.PriorityHigh)

	entered := make(chan struct{})
	release := make(chan struct{})
	store.mu.Lock()
	store.beforeList = func() {
		close(entered)
		<-release
	}
	store.mu.Unlock()

	type result struct {
		board ProjectBoard
		err   error
	}
	slow := make(chan result, 1)
	go func() {
		b, err := svc.ProjectBoard(ctx, "u1", first.ID)
		slow <- result{b, err}
	}()
	<-entered

	latest, err := svc.ProjectBoard(ctx, "u1", second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.Project.ID)

	close(release)
	got := <-slow
	assert.ErrorIs(t, got.err, ErrStale)
}

func TestTasksQuery(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, Config{})
	p, a := seedTask(t, svc, "u1", models.TaskDone, models.PriorityLow)
	b, err := svc.CreateTask(ctx, "u1", p.ID, models.Task{Title: "b", Status: models.TaskDone, Priority: models.PriorityHigh})
	require.NoError(t, err)
	c, err := svc.CreateTask(ctx, "u1", p.ID, models.Task{Title: "c", Priority: models.PriorityHigh})
	require.NoError(t, err)

	all, err := svc.Tasks(ctx, "u1", TaskQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	done, err := svc.Tasks(ctx, "u1", TaskQuery{Status: models.TaskDone})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, taskIDs(done))

	high, err := svc.Tasks(ctx, "u1", TaskQuery{Priority: models.PriorityHigh})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{b.ID, c.ID}, taskIDs(high))

	both, err := svc.Tasks(ctx, "u1", TaskQuery{Status: models.TaskDone, Priority: models.PriorityHigh})
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, taskIDs(both))

	_, err = svc.ProjectTasks(ctx, "u1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetTaskStatusReturnsStoredTask(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, Config{})
	_, task := seedTask(t, svc, "u1", models.TaskUnread, models.PriorityLow)

	updated, err := svc.SetTaskStatus(ctx, "u1", task.ID, models.TaskCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.TaskCancelled, updated.Status)

	_, err = svc.SetTaskStatus(ctx, "u1", task.ID, "archived")
	assert.ErrorIs(t, err, models.ErrInvalidTaskStatus)
}

func taskIDs(tasks []models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}
