package storyfeed

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	httputil "github.com/soapboxsocial/fanout/pkg/http"
)

// Endpoint serves the composed story feed of a user.
type Endpoint struct {
	reader *Reader
}

func NewEndpoint(reader *Reader) *Endpoint {
	return &Endpoint{reader: reader}
}

func (e *Endpoint) Router() *mux.Router {
	r := mux.NewRouter()

	r.Path("/users/{id:[0-9]+}/stories").Methods("GET").HandlerFunc(e.GetFeed)

	return r
}

func (e *Endpoint) GetFeed(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		httputil.JsonError(w, http.StatusBadRequest, httputil.ErrorCodeInvalidRequestBody, "invalid id")
		return
	}

	feed, err := e.reader.Read(r.Context(), id, time.Now())
	if err != nil {
		log.Printf("reader.Read err: %v\n", err)
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInternal, "failed to read feed")
		return
	}

	err = httputil.JsonEncode(w, feed)
	if err != nil {
		log.Printf("failed to write story feed response: %s\n", err.Error())
	}
}
