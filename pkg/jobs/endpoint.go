package jobs

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"

	httputil "github.com/soapboxsocial/fanout/pkg/http"
)

const defaultRetryLimit = 100

// Endpoint exposes queue state to operators.
type Endpoint struct {
	queues map[string]*Queue
}

func NewEndpoint(queues ...*Queue) *Endpoint {
	e := &Endpoint{queues: make(map[string]*Queue)}
	for _, q := range queues {
		e.queues[q.Name()] = q
	}

	return e
}

func (e *Endpoint) Router() *mux.Router {
	r := mux.NewRouter()

	r.Path("/queues/{name}").Methods("GET").HandlerFunc(e.GetCounts)
	r.Path("/queues/{name}/retry").Methods("POST").HandlerFunc(e.RetryFailed)

	return r
}

func (e *Endpoint) GetCounts(w http.ResponseWriter, r *http.Request) {
	queue, ok := e.queues[mux.Vars(r)["name"]]
	if !ok {
		httputil.JsonError(w, http.StatusNotFound, httputil.ErrorCodeNotFound, ErrUnknownQueue.Error())
		return
	}

	counts, err := queue.Counts(r.Context())
	if err != nil {
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInternal, "failed to count")
		return
	}

	err = httputil.JsonEncode(w, counts)
	if err != nil {
		log.Printf("failed to write counts response: %s\n", err.Error())
	}
}

func (e *Endpoint) RetryFailed(w http.ResponseWriter, r *http.Request) {
	queue, ok := e.queues[mux.Vars(r)["name"]]
	if !ok {
		httputil.JsonError(w, http.StatusNotFound, httputil.ErrorCodeNotFound, ErrUnknownQueue.Error())
		return
	}

	limit := httputil.GetInt(r.URL.Query(), "limit", defaultRetryLimit)

	retried, err := queue.RetryFailed(r.Context(), limit)
	if err != nil {
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInternal, "failed to retry")
		return
	}

	err = httputil.JsonEncode(w, map[string]int{"retried": retried})
	if err != nil {
		log.Printf("failed to write retry response: %s\n", err.Error())
	}
}
