package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/ledclock/internal/config"
)

// errBadRequest marks a body that does not decode.
var errBadRequest = errors.New("bad request")

// apiResponse is the body of every mutating endpoint.
type apiResponse struct {
	OK      bool   `json:"ok"`
	Restart bool   `json:"restart,omitempty"`
	Error   string `json:"error,omitempty"`
}

// timeRequest sets the clock. Date is optional and defaults to the current
// date; Time accepts HH:MM or HH:MM:SS.
type timeRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

func (r timeRequest) parse() (time.Time, error) {
	tod, err := parseClock(r.Time)
	if err != nil {
		return time.Time{}, err
	}
	date := time.Now()
	if r.Date != "" {
		date, err = time.Parse(dateLayout, r.Date)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: date %q: want YYYY-MM-DD", config.ErrInvalid, r.Date)
		}
	}
	return time.Date(date.Year(), date.Month(), date.Day(), tod.Hour(), tod.Minute(), tod.Second(), 0, time.UTC), nil
}

func parseClock(s string) (time.Time, error) {
	for _, layout := range []string{timeLayout, "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: time %q: want HH:MM or HH:MM:SS", config.ErrInvalid, s)
}

// timeResponse reports the displayed wall time.
type timeResponse struct {
	Time    string `json:"time"`
	Date    string `json:"date"`
	Weekday int    `json:"weekday"`
}

func newTimeResponse(t time.Time) timeResponse {
	return timeResponse{
		Time:    t.Format(timeLayout),
		Date:    t.Format(dateLayout),
		Weekday: int(t.Weekday()),
	}
}

// networkRequest carries the WiFi, NTP and sync-schedule form. Unlike the
// stored settings it accepts a password.
type networkRequest struct {
	SSID             string              `json:"ssid"`
	Password         string              `json:"password"`
	NTPServer        string              `json:"ntpServer"`
	UTCOffsetSeconds int                 `json:"utcOffsetSeconds"`
	Hostname         string              `json:"hostname"`
	Sync             config.SyncSchedule `json:"sync"`
}

// networkRequestFrom prefills the request with cur so omitted fields keep
// their values. The password is left empty, which keeps the stored one.
func networkRequestFrom(cur config.ClockConfig) networkRequest {
	return networkRequest{
		SSID:             cur.Network.SSID,
		NTPServer:        cur.Network.NTPServer,
		UTCOffsetSeconds: cur.Network.UTCOffsetSeconds,
		Hostname:         cur.Network.Hostname,
		Sync:             cur.Sync,
	}
}

const maxUTCOffset = 14 * 60 * 60

var hostnameRE = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

func (r networkRequest) validate() error {
	if len(r.SSID) > 32 {
		return fmt.Errorf("%w: ssid longer than 32 bytes", config.ErrInvalid)
	}
	if len(r.Password) > 63 {
		return fmt.Errorf("%w: password longer than 63 bytes", config.ErrInvalid)
	}
	if r.UTCOffsetSeconds < -maxUTCOffset || r.UTCOffsetSeconds > maxUTCOffset {
		return fmt.Errorf("%w: utc offset %d out of range", config.ErrInvalid, r.UTCOffsetSeconds)
	}
	if r.Hostname != "" && !hostnameRE.MatchString(r.Hostname) {
		return fmt.Errorf("%w: hostname %q", config.ErrInvalid, r.Hostname)
	}
	return r.Sync.Validate()
}

func (r networkRequest) network() config.Network {
	return config.Network{
		SSID:             r.SSID,
		Password:         r.Password,
		NTPServer:        r.NTPServer,
		UTCOffsetSeconds: r.UTCOffsetSeconds,
		Hostname:         r.Hostname,
	}
}

// decode reads a JSON body into v, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "bad request: " + err.Error()})
		return false
	}
	return true
}

// readBody reads a bounded request body, answering 400 itself on failure.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "bad request: " + err.Error()})
		return nil, false
	}
	return body, true
}

// decodeInto overlays the JSON body on v. Fields the body omits keep their
// values.
func decodeInto(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response failed")
	}
}

// writeError maps controller errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, config.ErrInvalid), errors.Is(err, errBadRequest):
		code = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		code = http.StatusServiceUnavailable
	default:
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, code, apiResponse{Error: err.Error()})
}
