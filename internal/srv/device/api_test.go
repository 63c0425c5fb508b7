package device

import (
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/jypelle/homeboard/apimodel"
	"github.com/jypelle/homeboard/internal/srv/config"
	"github.com/jypelle/homeboard/internal/srv/event"
	. "gopkg.in/check.v1"
)

type ApiSuite struct {
	api     *Api
	display *Display
}

var _ = Suite(&ApiSuite{})

func (s *ApiSuite) SetUpTest(c *C) {
	param, err := config.LoadServerParam([]byte("api:\n  enabled: true\n  api_key: secret\npanel:\n  driver: memory\n"))
	c.Assert(err, IsNil)
	serverConfig := &config.ServerConfig{
		ConfigDir:   c.MkDir(),
		ServerParam: param,
		ServerState: config.NewServerState(true),
	}
	s.display = NewDisplay(NewMemoryPanel(param.Panel.Width, param.Panel.Height))
	c.Assert(s.display.Start(), IsNil)
	s.api = NewApi(serverConfig, s.display)
}

func (s *ApiSuite) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("x-api-key", "secret")
	rec := httptest.NewRecorder()
	s.api.Handler().ServeHTTP(rec, req)
	return rec
}

// answer serves exactly one api event with handle.
func (s *ApiSuite) answer(handle func(ev event.ApiEvent) error) chan event.ApiEvent {
	received := make(chan event.ApiEvent, 1)
	go func() {
		ev := <-s.api.EventChannel()
		received <- ev
		ev.Result <- handle(ev)
	}()
	return received
}

func decodeError(c *C, rec *httptest.ResponseRecorder) apimodel.ErrorMessage {
	var msg apimodel.ErrorMessage
	c.Assert(json.NewDecoder(rec.Body).Decode(&msg), IsNil)
	return msg
}

func (s *ApiSuite) TestApiKeyIsRequired(c *C) {
	req := httptest.NewRequest("GET", "/api/is_alive", nil)
	rec := httptest.NewRecorder()
	s.api.Handler().ServeHTTP(rec, req)
	c.Assert(rec.Code, Equals, http.StatusForbidden)
	c.Assert(decodeError(c, rec).ErrMessage, Equals, "Forbidden")
}

func (s *ApiSuite) TestIsAlive(c *C) {
	rec := s.do("GET", "/api/is_alive", "")
	c.Assert(rec.Code, Equals, http.StatusOK)
	c.Assert(decodeError(c, rec).ErrMessage, Equals, "Ok")
}

func (s *ApiSuite) TestPublish(c *C) {
	received := s.answer(func(ev event.ApiEvent) error { return nil })
	rec := s.do("POST", "/api/publish", `{"topic": "bedroom/motion", "payload": "on"}`)
	c.Assert(rec.Code, Equals, http.StatusAccepted)
	ev := <-received
	c.Assert(ev.Data, DeepEquals, event.ApiEventPublishData{Topic: "bedroom/motion", Payload: "on"})
}

func (s *ApiSuite) TestPublishRejectsBadBody(c *C) {
	rec := s.do("POST", "/api/publish", `{"payload": "on"}`)
	c.Assert(rec.Code, Equals, http.StatusBadRequest)
	c.Assert(decodeError(c, rec).ErrMessage, Equals, "unable to parse parameters")
}

func (s *ApiSuite) TestDisplayState(c *C) {
	received := s.answer(func(ev event.ApiEvent) error { return nil })
	rec := s.do("POST", "/api/display/off", "")
	c.Assert(rec.Code, Equals, http.StatusOK)
	c.Assert((<-received).Data, DeepEquals, event.ApiEventDisplayData{State: "off"})

	rec = s.do("POST", "/api/display/dim", "")
	c.Assert(rec.Code, Equals, http.StatusNotFound)

	rec = s.do("GET", "/api/display/on", "")
	c.Assert(rec.Code, Equals, http.StatusMethodNotAllowed)
}

func (s *ApiSuite) TestRegions(c *C) {
	s.answer(func(ev event.ApiEvent) error {
		ev.Data.(event.ApiEventRegionsData).Regions <- []apimodel.Region{{Name: "temperature", Text: "Office: 72.3F"}}
		return nil
	})
	rec := s.do("GET", "/api/regions", "")
	c.Assert(rec.Code, Equals, http.StatusOK)

	var regions []apimodel.Region
	c.Assert(json.NewDecoder(rec.Body).Decode(&regions), IsNil)
	c.Assert(regions, HasLen, 1)
	c.Assert(regions[0].Text, Equals, "Office: 72.3F")
}

func (s *ApiSuite) TestScreen(c *C) {
	rec := s.do("GET", "/api/screen.png", "")
	c.Assert(rec.Code, Equals, http.StatusOK)
	c.Assert(rec.Header().Get("Content-Type"), Equals, "image/png")

	img, err := png.Decode(rec.Body)
	c.Assert(err, IsNil)
	c.Assert(img.Bounds(), Equals, s.display.Bounds())
}
