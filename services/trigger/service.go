package trigger

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"donation-nodes/pkg/clients/charityspurse"
	"donation-nodes/pkg/credentials"
	"donation-nodes/pkg/donation"
	"donation-nodes/pkg/engine"
	"donation-nodes/pkg/host"
)

// Runner is the part of host.Runtime the HTTP surface needs.
type Runner interface {
	Instances() []host.Instance
	Instance(id string) (host.Instance, bool)
	LastRun(id string) (host.RunRecord, bool)
	IsPolling(inst host.Instance) bool
	State(ctx context.Context, id string) (donation.Cursor, error)
	Invoke(ctx context.Context, id string) (host.Result, error)
	Preview(ctx context.Context, id string, since time.Time) ([]engine.Item, error)
}

// CredentialTester runs the smoke-test request for a credential type.
type CredentialTester func(ctx context.Context, name string) error

type Service struct {
	runner          Runner
	registry        *engine.Registry
	testCredentials CredentialTester
}

// NewService wires the HTTP surface to a runtime and the outbound client used
// for credential tests.
func NewService(rt *host.Runtime, client charityspurse.Client) *Service {
	return &Service{
		runner:   rt,
		registry: rt.Registry(),
		testCredentials: func(ctx context.Context, name string) error {
			return credentials.TestByName(ctx, rt.Credentials(), client, name)
		},
	}
}

func NewServiceWithDeps(runner Runner, registry *engine.Registry, tester CredentialTester) *Service {
	return &Service{runner: runner, registry: registry, testCredentials: tester}
}

// jsonMiddleware sets the Content-Type header to application/json
func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (s *Service) LoadRoutes(parentRouter *mux.Router) {
	router := parentRouter.NewRoute().Subrouter()
	router.StrictSlash(false)
	router.Use(jsonMiddleware)

	router.HandleFunc("/nodes", s.HandleListNodes).Methods("GET")
	router.HandleFunc("/nodes/{type}", s.HandleGetNode).Methods("GET")

	router.HandleFunc("/credentials", s.HandleListCredentials).Methods("GET")
	router.HandleFunc("/credentials/{name}/test", s.HandleTestCredentials).Methods("POST")

	router.HandleFunc("/instances", s.HandleListInstances).Methods("GET")
	router.HandleFunc("/instances/{id}/state", s.HandleGetState).Methods("GET")
	router.HandleFunc("/instances/{id}/execute", s.HandleExecute).Methods("POST")
	router.HandleFunc("/instances/{id}/preview", s.HandlePreview).Methods("GET")

	router.HandleFunc("/openapi.json", s.HandleOpenAPI).Methods("GET")
}
