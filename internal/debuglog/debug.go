// Package debuglog provides per-feature debug logging on top of slog.
//
// Client-style debug output is switched on by a stored numeric level: a
// feature logs only when the stored level equals its feature level, or when
// it is AllFeatures. Server-side output ignores the stored level and is
// enabled whenever the process is not running in production.
package debuglog

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

const AllFeatures = 999

const (
	FeatureAuth    = 1
	FeatureProfile = 2
	FeatureMongoDB = 3
	FeatureEmail   = 4
	FeatureImages  = 5
)

type FeatureNames map[int]string

var StandardFeatures = FeatureNames{
	FeatureAuth:    "Auth",
	FeatureProfile: "Profile",
	FeatureMongoDB: "MongoDB",
	FeatureEmail:   "Email",
	FeatureImages:  "Images",
}

// LevelSource reports the stored debug level, if any.
type LevelSource interface {
	DebugLevel() (string, bool)
}

type StaticLevel string

func (s StaticLevel) DebugLevel() (string, bool) { return string(s), s != "" }

type envLevel struct {
	getenv func(string) string
	key    string
}

func EnvLevel(getenv func(string) string, key string) LevelSource {
	return envLevel{getenv: getenv, key: key}
}

func (e envLevel) DebugLevel() (string, bool) {
	v := e.getenv(e.key)
	return v, v != ""
}

type cookieLevel struct {
	r    *http.Request
	name string
}

// CookieLevel reads the stored level from a request cookie.
func CookieLevel(r *http.Request, name string) LevelSource {
	return cookieLevel{r: r, name: name}
}

func (c cookieLevel) DebugLevel() (string, bool) {
	if c.r == nil {
		return "", false
	}
	ck, err := c.r.Cookie(c.name)
	if err != nil || ck.Value == "" {
		return "", false
	}
	return ck.Value, true
}

type Debugger struct {
	logger *slog.Logger
	names  FeatureNames
	level  LevelSource
	prod   bool
}

type Options struct {
	Logger *slog.Logger
	Names  FeatureNames
	Level  LevelSource
	Prod   bool
}

func New(opts Options) *Debugger {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	names := opts.Names
	if names == nil {
		names = StandardFeatures
	}
	return &Debugger{
		logger: logger,
		names:  names,
		level:  opts.Level,
		prod:   opts.Prod,
	}
}

// WithLevel returns a copy reading the stored level from src.
func (d *Debugger) WithLevel(src LevelSource) *Debugger {
	cp := *d
	cp.level = src
	return &cp
}

func (d *Debugger) Enabled(feature int) bool {
	if d == nil || d.level == nil {
		return false
	}
	raw, ok := d.level.DebugLevel()
	if !ok {
		return false
	}
	level, ok := leadingInt(raw)
	if !ok {
		return false
	}
	return level == feature || level == AllFeatures
}

// leadingInt parses the optional sign and digits at the start of s, so
// "3abc" reads as 3.
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	return n, err == nil
}

func (d *Debugger) FeatureName(feature int) string {
	if name, ok := d.names[feature]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("Feature-%d", feature)
}

func (d *Debugger) Debug(feature int, msg string, args ...any) {
	if !d.Enabled(feature) {
		return
	}
	d.logger.Log(context.Background(), slog.LevelInfo, "["+d.FeatureName(feature)+" Debug] "+msg, args...)
}

// Server logs regardless of the stored level, but never in production.
func (d *Debugger) Server(feature int, msg string, args ...any) {
	if d == nil || d.prod {
		return
	}
	d.logger.Log(context.Background(), slog.LevelInfo, "["+d.FeatureName(feature)+" Server Debug] "+msg, args...)
}

func (d *Debugger) Feature(feature int) func(msg string, args ...any) {
	return func(msg string, args ...any) { d.Debug(feature, msg, args...) }
}

// Named returns one bound debug function per configured feature, keyed
// "debug" + the feature name with whitespace removed (e.g. "debugMongoDB").
func (d *Debugger) Named() map[string]func(msg string, args ...any) {
	out := make(map[string]func(string, ...any), len(d.names))
	for level, name := range d.names {
		key := "debug" + strings.Join(strings.Fields(name), "")
		out[key] = d.Feature(level)
	}
	return out
}
