package device

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jypelle/homeboard/apimodel"
	"github.com/jypelle/homeboard/internal/srv/config"
	"github.com/jypelle/homeboard/internal/srv/event"
	"github.com/jypelle/homeboard/internal/tool"
	"github.com/sirupsen/logrus"
)

const apiEventTimeout = 5 * time.Second

// ScreenSource renders the current screen as a PNG image.
type ScreenSource interface {
	WritePNG(w io.Writer) error
}

type Api struct {
	lock         sync.RWMutex
	eventChannel chan event.ApiEvent

	router    *mux.Router
	apiRouter *mux.Router
	server    *http.Server
	running   bool

	screen ScreenSource
	config *config.ServerConfig
}

func NewApi(config *config.ServerConfig, screen ScreenSource) *Api {
	api := Api{
		config:       config,
		screen:       screen,
		eventChannel: make(chan event.ApiEvent),
	}

	api.router = mux.NewRouter().StrictSlash(false)

	api.apiRouter = api.router.PathPrefix("/api").Subrouter()
	api.apiRouter.NotFoundHandler = http.HandlerFunc(ErrorNotFoundAction)
	api.apiRouter.MethodNotAllowedHandler = http.HandlerFunc(ErrorMethodNotAllowedAction)

	// Auth middleware
	api.apiRouter.Use(
		func(handler http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				defer func() {
					if rec := recover(); rec != nil {
						logrus.Warningf("recovered from panic : [%v] - stack trace : \n [%s]", rec, debug.Stack())
						strMessage := fmt.Sprintf("%v", rec)
						GlobalErrorAction(w, strMessage, http.StatusInternalServerError)
					}
				}()

				// Check API Key
				apiKey := r.Header.Get("x-api-key")
				if apiKey != config.ServerParam.ApiParam.ApiKey {
					ErrorStatusAction(w, r, http.StatusForbidden)
					return
				}

				logrus.Debugf("PATH: %s %s", r.Host, r.URL.Path)

				handler.ServeHTTP(w, r)
			})
		})

	api.apiRouter.HandleFunc("/is_alive",
		func(w http.ResponseWriter, r *http.Request) {
			ErrorStatusAction(w, r, http.StatusOK)
		}).Methods("GET")
	api.apiRouter.HandleFunc("/status", api.statusAction).Methods("GET")
	api.apiRouter.HandleFunc("/regions", api.regionsAction).Methods("GET")
	api.apiRouter.HandleFunc("/screen.png", api.screenAction).Methods("GET")
	api.apiRouter.HandleFunc("/publish", api.publishAction).Methods("POST")
	api.apiRouter.HandleFunc("/display/{state:on|off|switch}", api.displayAction).Methods("POST")

	headersOk := handlers.AllowedHeaders([]string{"Authorization", "Content-Type", "x-api-key"})
	originsOk := handlers.AllowedOrigins([]string{"*"})
	methodsOk := handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"})

	api.server = &http.Server{
		Addr:         ":" + strconv.FormatInt(config.ServerParam.ApiParam.SslPort, 10),
		Handler:      handlers.CompressHandler(handlers.CORS(originsOk, headersOk, methodsOk)(api.router)),
		ReadTimeout:  time.Second * 240,
		WriteTimeout: time.Second * 240,
		IdleTimeout:  time.Second * 240,
	}

	return &api
}

// Handler serves the api without TLS.
func (d *Api) Handler() http.Handler {
	return d.router
}

func (d *Api) Start() {
	if !d.config.ApiParam.Enabled {
		logrus.Infof("Api device disabled")
		return
	}
	logrus.Infof("Start api device")

	existServerCert, err := tool.IsFileExists(d.selfSignedCertFilename())
	if err != nil {
		logrus.Fatalf("Unable to access %s: %v\n", d.selfSignedCertFilename(), err)
	}

	existServerKey, err := tool.IsFileExists(d.selfSignedKeyFilename())
	if err != nil {
		logrus.Fatalf("Unable to access %s: %v\n", d.selfSignedKeyFilename(), err)
	}

	if !existServerCert || !existServerKey {
		logrus.Info("Missing cert and key files, trying to generate them...")
		err = tool.GenerateTlsCertificate(
			"homeboard",
			"Homeboard "+d.config.Name,
			d.selfSignedKeyFilename(),
			d.selfSignedCertFilename(),
			[]string{})
		if err != nil {
			logrus.Fatalf("Unable to generate cert and key files : %v\n", err)
		}
		logrus.Info("Self-signed cert and key files generated")
	}

	d.lock.Lock()
	d.running = true
	d.lock.Unlock()

	go func() {
		err := d.server.ListenAndServeTLS(d.selfSignedCertFilename(), d.selfSignedKeyFilename())
		if err != nil && err != http.ErrServerClosed {
			logrus.Error(err)
		}
	}()
}

func (d *Api) StopSendingEvent() {
	d.lock.Lock()
	defer d.lock.Unlock()
	if !d.running {
		return
	}
	logrus.Infof("Stop api device")
	d.server.Shutdown(context.Background())
	d.running = false
}

func (d *Api) EventChannel() chan event.ApiEvent {
	return d.eventChannel
}

// send hands data to the event loop and waits for its answer.
func (d *Api) send(data interface{}) error {
	result := make(chan error, 1)
	select {
	case d.eventChannel <- event.ApiEvent{Result: result, Data: data}:
	case <-time.After(apiEventTimeout):
		return fmt.Errorf("event loop busy")
	}
	return <-result
}

func (d *Api) statusAction(w http.ResponseWriter, r *http.Request) {
	status := make(chan apimodel.Status, 1)
	if err := d.send(event.ApiEventStatusData{Status: status}); err != nil {
		GlobalErrorAction(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJson(w, <-status)
}

func (d *Api) regionsAction(w http.ResponseWriter, r *http.Request) {
	regions := make(chan []apimodel.Region, 1)
	if err := d.send(event.ApiEventRegionsData{Regions: regions}); err != nil {
		GlobalErrorAction(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJson(w, <-regions)
}

func (d *Api) screenAction(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	if err := d.screen.WritePNG(w); err != nil {
		logrus.Warnf("Unable to encode screen: %v", err)
	}
}

func (d *Api) publishAction(w http.ResponseWriter, r *http.Request) {
	var request apimodel.PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.Topic == "" {
		apimodel.WrongParametersErrorMessage.Send(w)
		return
	}
	if err := d.send(event.ApiEventPublishData{Topic: request.Topic, Payload: request.Payload}); err != nil {
		GlobalErrorAction(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	ErrorStatusAction(w, r, http.StatusAccepted)
}

func (d *Api) displayAction(w http.ResponseWriter, r *http.Request) {
	state := mux.Vars(r)["state"]
	if err := d.send(event.ApiEventDisplayData{State: state}); err != nil {
		GlobalErrorAction(w, err.Error(), http.StatusForbidden)
		return
	}
	ErrorStatusAction(w, r, http.StatusOK)
}

func (d *Api) selfSignedKeyFilename() string {
	return filepath.Join(d.config.ConfigDir, "key.pem")
}

func (d *Api) selfSignedCertFilename() string {
	return filepath.Join(d.config.ConfigDir, "cert.pem")
}

func writeJson(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("Unable to encode response: %v", err)
	}
}

func ErrorNotFoundAction(w http.ResponseWriter, r *http.Request) {
	ErrorStatusAction(w, r, http.StatusNotFound)
}

func ErrorMethodNotAllowedAction(w http.ResponseWriter, r *http.Request) {
	ErrorStatusAction(w, r, http.StatusMethodNotAllowed)
}

func ErrorStatusAction(w http.ResponseWriter, r *http.Request, status int) {
	GlobalErrorAction(w, "", status)
}

func GlobalErrorAction(w http.ResponseWriter, message string, status int) {
	apimodel.ErrorMessage{ErrStatusCode: status, ErrMessage: message}.Send(w)
}
