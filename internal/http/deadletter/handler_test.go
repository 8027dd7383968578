package deadletter_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/payrecon/internal/http/deadletter"
	"github.com/MrJamesThe3rd/payrecon/internal/queue"
	"github.com/MrJamesThe3rd/payrecon/internal/reconcile"
)

type fakeStore struct {
	dead      []*queue.Job
	lastLimit int
}

func (f *fakeStore) DeadLetters(_ context.Context, limit int) ([]*queue.Job, error) {
	f.lastLimit = limit
	return f.dead, nil
}

func (f *fakeStore) Replay(_ context.Context, id string) (*queue.Job, error) {
	for i, j := range f.dead {
		if j.ID == id {
			f.dead = append(f.dead[:i], f.dead[i+1:]...)
			j.Reset()

			return j, nil
		}
	}

	return nil, queue.ErrJobNotFound
}

func (f *fakeStore) Stats(context.Context) (queue.Stats, error) {
	return queue.Stats{Dead: int64(len(f.dead))}, nil
}

func newRouter(store deadletter.Store) http.Handler {
	r := chi.NewRouter()
	r.Route("/dead-letters", deadletter.NewHandler(store).Routes)

	return r
}

func deadJob(id string) *queue.Job {
	return &queue.Job{
		ID:        id,
		Event:     reconcile.Event{Gateway: "stripe", ExternalEventID: "evt_" + id, Type: reconcile.EventPaymentSucceeded, SubjectID: "pi_x"},
		Status:    queue.StatusDead,
		Attempts:  1,
		LastError: "consistency violation: no transaction with external id \"pi_x\"",
		ErrorKind: reconcile.KindConsistency,
	}
}

func TestHandler_List(t *testing.T) {
	store := &fakeStore{dead: []*queue.Job{deadJob("a"), deadJob("b")}}

	rec := httptest.NewRecorder()
	newRouter(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dead-letters?limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, store.lastLimit)

	var body []queue.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, reconcile.KindConsistency, body[0].ErrorKind)
	assert.Equal(t, "evt_a", body[0].Event.ExternalEventID)

	rec = httptest.NewRecorder()
	newRouter(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dead-letters?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Replay(t *testing.T) {
	store := &fakeStore{dead: []*queue.Job{deadJob("a")}}

	rec := httptest.NewRecorder()
	newRouter(store).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/dead-letters/a/replay", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)
	assert.Empty(t, store.dead)

	rec = httptest.NewRecorder()
	newRouter(store).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/dead-letters/a/replay", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Stats(t *testing.T) {
	store := &fakeStore{dead: []*queue.Job{deadJob("a")}}

	rec := httptest.NewRecorder()
	newRouter(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dead-letters/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"dead":1`)
}
