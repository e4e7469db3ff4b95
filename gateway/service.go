package gateway

import (
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/zllovesuki/launchpad/boot"
	"github.com/zllovesuki/launchpad/history"
	resp "github.com/zllovesuki/launchpad/response"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

//go:embed page.html
var defaultPage string

// Booter is the trigger and status side of the boot orchestrator
type Booter interface {
	Boot(ctx context.Context) (*boot.Sequence, bool)
	Phase() boot.Phase
	InProgress() bool
}

// Prober performs a single liveness check
type Prober interface {
	IsAlive(ctx context.Context) bool
}

// HistoryLister lists recorded boot sequences
type HistoryLister interface {
	List(ctx context.Context, instanceID string, limit int) ([]history.Record, error)
}

// ServiceOptions contains the configuration for Service router
type ServiceOptions struct {
	Orchestrator Booter
	Probe        Prober
	// History is optional
	History HistoryLister

	InstanceID  string
	RedirectURL string
	PublicDir   string
	CORSOrigins []string

	// BootContext bounds every boot sequence triggered by a request
	BootContext context.Context
	Logger      *zap.Logger
}

// Service is the gateway router
type Service struct {
	ServiceOptions
	page *template.Template
}

// Status is returned by the status endpoint
type Status struct {
	State int    `json:"state"`
	URL   string `json:"url"`
}

type pageData struct {
	Phase     int
	PhaseName string
	StatePath string
}

// NewService will create an instance of the gateway router
func NewService(option ServiceOptions) (*Service, error) {
	if option.Orchestrator == nil {
		return nil, fmt.Errorf("nil Orchestrator is invalid")
	}
	if option.Probe == nil {
		return nil, fmt.Errorf("nil Probe is invalid")
	}
	if len(option.RedirectURL) == 0 {
		return nil, fmt.Errorf("empty RedirectURL is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if option.BootContext == nil {
		option.BootContext = context.Background()
	}
	page, err := loadPage(option.PublicDir)
	if err != nil {
		return nil, err
	}
	return &Service{
		ServiceOptions: option,
		page:           page,
	}, nil
}

// loadPage prefers index.html from the public directory over the embedded page
func loadPage(publicDir string) (*template.Template, error) {
	if len(publicDir) > 0 {
		path := filepath.Join(publicDir, "index.html")
		if _, err := os.Stat(path); err == nil {
			page, err := template.ParseFiles(path)
			if err != nil {
				return nil, extErrors.Wrap(err, "Cannot parse index.html")
			}
			return page, nil
		}
	}
	return template.Must(template.New("page").Parse(defaultPage)), nil
}

// CurrentStatus is the status surface: the published phase and the redirect target
func (s *Service) CurrentStatus() Status {
	return Status{
		State: int(s.Orchestrator.Phase()),
		URL:   s.RedirectURL,
	}
}

func (s *Service) index(w http.ResponseWriter, r *http.Request) {
	logger := s.Logger.With(zap.String("RequestID", middleware.GetReqID(r.Context())))
	logger.Debug("Request received")

	alive := false
	if !s.Orchestrator.InProgress() {
		alive = s.Probe.IsAlive(r.Context())
	}
	if alive {
		logger.Debug("Request redirected as system is LIVE")
		http.Redirect(w, r, s.RedirectURL, http.StatusFound)
		return
	}

	seq, started := s.Orchestrator.Boot(s.BootContext)
	if started {
		logger.Info("Running boot sequence",
			zap.String("SequenceID", seq.ID),
		)
	}

	phase := s.Orchestrator.Phase()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.page.Execute(w, pageData{
		Phase:     int(phase),
		PhaseName: phase.String(),
		StatePath: "state",
	}); err != nil {
		logger.Error("Unable to render page",
			zap.Error(err),
		)
	}
}

func (s *Service) state(w http.ResponseWriter, r *http.Request) {
	resp.WriteResponse(w, r, s.CurrentStatus())
}

func (s *Service) listHistory(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Boot history is not enabled"))
		return
	}

	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 || parsed > 100 {
			resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Invalid limit param"))
			return
		}
		limit = parsed
	}

	results, err := s.History.List(r.Context(), s.InstanceID, limit)
	if err != nil {
		s.Logger.Error("Unable to list boot history",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrServiceUnavailable().AddMessages("Cannot get the list of boot sequences"))
		return
	}

	resp.WriteResponse(w, r, results)
}

// Router will return the gateway routes
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		MaxAge:         300,
	}))

	r.Get("/", s.index)
	r.Get("/state", s.state)
	r.Get("/history", s.listHistory)

	if len(s.PublicDir) > 0 {
		r.Handle("/public/*", http.StripPrefix("/public/", http.FileServer(http.Dir(s.PublicDir))))
	}

	return r
}
